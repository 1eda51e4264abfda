package config

import (
	"os"
	"strconv"
	"strings"
)

// GetEnv 获取环境变量，如果不存在则返回默认值
func GetEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// GetEnvInt 获取环境变量（整型），解析失败时返回默认值
func GetEnvInt(key string, defaultValue int) int {
	if intVal, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return intVal
	}
	return defaultValue
}

// GetEnvBool 获取环境变量（布尔型）
func GetEnvBool(key string, defaultValue bool) bool {
	if boolVal, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return boolVal
	}
	return defaultValue
}

// GetEnvList 获取逗号分隔的环境变量列表
func GetEnvList(key string, defaultValue []string) []string {
	value, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(value) == "" {
		return defaultValue
	}

	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
