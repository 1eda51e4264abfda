package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`            // 业务状态码
	Message string      `json:"message"`         // 响应消息
	Data    interface{} `json:"data,omitempty"`  // 响应数据
	Error   string      `json:"error,omitempty"` // 错误信息
}

// 业务状态码，前三位与HTTP状态码一致
const (
	CodeSuccess             = 20000
	CodeCreated             = 20100
	CodeError               = 40000
	CodeUnauthorized        = 40100
	CodeForbidden           = 40300
	CodeNotFound            = 40400
	CodeConflict            = 40900
	CodeValidationError     = 42200
	CodeTooManyRequests     = 42900
	CodeInternalServerError = 50000
)

var codeMessages = map[int]string{
	CodeSuccess:             "OK",
	CodeCreated:             "Created",
	CodeError:               "Bad request",
	CodeUnauthorized:        "Login required",
	CodeForbidden:           "Forbidden",
	CodeNotFound:            "Not found",
	CodeConflict:            "Conflict",
	CodeValidationError:     "Validation failed",
	CodeTooManyRequests:     "Too many requests, try again later",
	CodeInternalServerError: "Internal server error",
}

// GetCodeMessage 获取状态码对应的消息
func GetCodeMessage(code int) string {
	if msg, exists := codeMessages[code]; exists {
		return msg
	}
	return "Unknown error"
}

// HTTPStatus 业务码对应的HTTP状态码
func HTTPStatus(code int) int {
	status := code / 100
	if status < 100 || status > 599 {
		return http.StatusInternalServerError
	}
	return status
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: GetCodeMessage(CodeSuccess),
		Data:    data,
	})
}

// SuccessWithMessage 带消息的成功响应
func SuccessWithMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: message,
		Data:    data,
	})
}

// Created 资源创建成功
func Created(c *gin.Context, message string, data interface{}) {
	if message == "" {
		message = GetCodeMessage(CodeCreated)
	}
	c.JSON(http.StatusCreated, Response{
		Code:    CodeCreated,
		Message: message,
		Data:    data,
	})
}

// Error 错误响应
func Error(c *gin.Context, code int, message string) {
	ErrorWithData(c, code, message, nil)
}

// ErrorWithData 带数据的错误响应
func ErrorWithData(c *gin.Context, code int, message string, data interface{}) {
	if message == "" {
		message = GetCodeMessage(code)
	}
	c.JSON(HTTPStatus(code), Response{
		Code:    code,
		Message: message,
		Data:    data,
	})
}

// ValidationError 表单验证错误，data.errors 为字段 -> 消息
func ValidationError(c *gin.Context, err error) {
	ErrorWithData(c, CodeValidationError, "", gin.H{"errors": FormatValidationErrors(err)})
}

// Unauthorized 未授权响应
func Unauthorized(c *gin.Context, message string) {
	Error(c, CodeUnauthorized, message)
}

// NotFound 资源不存在响应
func NotFound(c *gin.Context, message string) {
	Error(c, CodeNotFound, message)
}

// InternalError 内部错误响应，不向客户端暴露细节
func InternalError(c *gin.Context, message string) {
	Error(c, CodeInternalServerError, message)
}
