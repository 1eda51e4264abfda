package utils

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	phoneRegex   = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)
	registerOnce sync.Once
)

// RegisterValidations 在gin的验证引擎上注册自定义规则，字段名取 form/json 标签
func RegisterValidations() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(fieldName)
		_ = v.RegisterValidation("phone", validatePhone)
	})
}

func fieldName(fld reflect.StructField) string {
	for _, tag := range []string{"form", "json"} {
		name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
		if name != "" && name != "-" {
			return name
		}
	}
	return fld.Name
}

// validatePhone 国际格式手机号
func validatePhone(fl validator.FieldLevel) bool {
	return phoneRegex.MatchString(fl.Field().String())
}

// ValidationErrors 验证错误结构
type ValidationErrors struct {
	Errors map[string]string `json:"errors"`
}

func (ve *ValidationErrors) Error() string {
	return fmt.Sprintf("validation failed: %v", ve.Errors)
}

// FieldError 构造单字段验证错误
func FieldError(field, message string) error {
	return &ValidationErrors{Errors: map[string]string{field: message}}
}

// FormatValidationErrors 把绑定/验证错误转为 字段 -> 消息
func FormatValidationErrors(err error) map[string]string {
	result := make(map[string]string)

	var custom *ValidationErrors
	if errors.As(err, &custom) {
		for k, v := range custom.Errors {
			result[k] = v
		}
		return result
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			result[fe.Field()] = errorMessage(fe.Field(), fe.Tag(), fe.Param())
		}
		return result
	}

	if err != nil {
		result["form"] = err.Error()
	}
	return result
}

func errorMessage(field, tag, param string) string {
	messages := map[string]string{
		"required": "%s is required",
		"email":    "%s must be a valid email address",
		"min":      "%s must be at least %s characters",
		"max":      "%s must be at most %s characters",
		"gte":      "%s must be greater than or equal to %s",
		"lte":      "%s must be less than or equal to %s",
		"oneof":    "%s must be one of: %s",
		"eqfield":  "%s must match %s",
		"phone":    "%s must be a valid phone number",
	}

	template, ok := messages[tag]
	if !ok {
		return fmt.Sprintf("%s is invalid", field)
	}
	if strings.Count(template, "%s") == 1 {
		return fmt.Sprintf(template, field)
	}
	return fmt.Sprintf(template, field, param)
}
