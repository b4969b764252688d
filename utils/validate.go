package utils

import (
	"regexp"
)

// E.164 形态校验，账号手机号录入用
var phonePattern = regexp.MustCompile(`^\+?[0-9]{8,15}$`)

func ValidatePhone(phone string) bool {
	return phonePattern.MatchString(phone)
}
