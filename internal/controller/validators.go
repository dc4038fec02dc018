package controller

import (
	"dsa_hub_backend/internal/util"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var registerOnce sync.Once

// RegisterValidators 注册自定义校验标签，重复调用无副作用
func RegisterValidators() error {
	var err error
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			err = fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
			return
		}
		// 提示信息使用 json 字段名
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "" || name == "-" {
				return f.Name
			}
			return name
		})
		if err = v.RegisterValidation("youtube_url", func(fl validator.FieldLevel) bool {
			_, ok := util.YouTubeVideoID(fl.Field().String())
			return ok
		}); err != nil {
			return
		}
		err = v.RegisterValidation("difficulty", func(fl validator.FieldLevel) bool {
			switch strings.ToLower(fl.Field().String()) {
			case "", "easy", "medium", "hard", "mixed":
				return true
			}
			return false
		})
	})
	return err
}

// bindingMessage 把校验错误转成面向用户的英文提示
func bindingMessage(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return "Invalid request body"
	}
	fe := verrs[0]
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return "Please provide a valid email"
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "youtube_url":
		return util.ErrInvalidYouTubeURL.Error()
	case "difficulty":
		return "difficulty must be one of easy, medium, hard, mixed"
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", field, fe.Param())
	}
	return fmt.Sprintf("%s is invalid", field)
}
