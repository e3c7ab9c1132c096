package common

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once

	productIDPattern  = regexp.MustCompile(`^p\d{5}$`)
	milligramPattern  = regexp.MustCompile(`^\d+(\.\d+)?mg$`)
	gramAmountPattern = regexp.MustCompile(`^\d+(\.\d+)?g$`)
)

// IsProductID 檢查商品 ID 格式（p + 五位數字）
func IsProductID(id string) bool {
	return productIDPattern.MatchString(id)
}

// GetValidator 取得共用的驗證器實例
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		// 錯誤訊息使用 JSON 欄位名稱
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})

		_ = validate.RegisterValidation("productid", func(fl validator.FieldLevel) bool {
			return productIDPattern.MatchString(fl.Field().String())
		})
		_ = validate.RegisterValidation("mgamount", func(fl validator.FieldLevel) bool {
			return milligramPattern.MatchString(fl.Field().String())
		})
		_ = validate.RegisterValidation("gamount", func(fl validator.FieldLevel) bool {
			return gramAmountPattern.MatchString(fl.Field().String())
		})
	})
	return validate
}

// ValidateStruct 驗證結構體，失敗時回傳 *ValidationError
func ValidateStruct(s interface{}) error {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &ValidationError{message: err.Error()}
	}

	fields := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields[fe.Namespace()] = translateFieldError(fe)
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	messages := make([]string, 0, len(keys))
	for _, k := range keys {
		messages = append(messages, fields[k])
	}

	return &ValidationError{
		message: strings.Join(messages, "; "),
		Fields:  fields,
	}
}

var fieldErrorTemplates = map[string]string{
	"required":  "%s is required",
	"productid": "%s must look like p00000",
	"mgamount":  "%s must be an amount in mg",
	"gamount":   "%s must be an amount in g",
}

var fieldErrorWithParam = map[string]string{
	"min": "%s must have at least %s entries",
	"gt":  "%s must be greater than %s",
	"gte": "%s must be greater than or equal to %s",
	"max": "%s must have at most %s entries",
}

func translateFieldError(fe validator.FieldError) string {
	field := fe.Field()
	if tpl, ok := fieldErrorTemplates[fe.Tag()]; ok {
		return fmt.Sprintf(tpl, field)
	}
	if tpl, ok := fieldErrorWithParam[fe.Tag()]; ok {
		return fmt.Sprintf(tpl, field, fe.Param())
	}
	return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
}
