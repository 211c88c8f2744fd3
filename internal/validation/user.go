package validation

import (
	"net/mail"
	"net/url"
	"strings"
	"time"
)

const (
	// MaxEmailLen ограничение RFC 5321
	MaxEmailLen = 320
	// MinNameLen и MaxNameLen границы имени и фамилии
	MinNameLen = 2
	MaxNameLen = 64
)

// NormalizeEmail приводит email к виду, в котором он хранится
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail проверяет формат email (адрес без display name)
func ValidateEmail(email string) error {
	if email == "" {
		return newError("email", "email cannot be empty")
	}
	if len(email) > MaxEmailLen {
		return newError("email", "email can not be longer than %d characters", MaxEmailLen)
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return newError("email", "invalid email")
	}

	return nil
}

// ValidatePassword проверяет длину пароля. Границы задаются конфигурацией
func ValidatePassword(password string, minLen, maxLen int) error {
	if password == "" {
		return newError("password", "password cannot be empty")
	}
	n := len([]rune(password))
	if n < minLen {
		return newError("password", "password must be at least %d characters long", minLen)
	}
	if n > maxLen {
		return newError("password", "password can not be longer than %d characters", maxLen)
	}
	return nil
}

// ValidateName проверяет необязательное имя или фамилию
func ValidateName(field, name string) error {
	if name == "" {
		return nil
	}
	n := len([]rune(name))
	if n < MinNameLen {
		return newError(field, "%s must be more than 1 character", field)
	}
	if n > MaxNameLen {
		return newError(field, "%s must be less than %d characters", field, MaxNameLen)
	}
	return nil
}

// ValidateBirthday необязательная дата в формате YYYY-MM-DD
func ValidateBirthday(birthday string) error {
	if birthday == "" {
		return nil
	}
	if _, err := time.Parse(time.DateOnly, birthday); err != nil {
		return newError("birthday", "invalid birthday date")
	}
	return nil
}

// ValidateAvatarURL необязательный абсолютный http(s) URL
func ValidateAvatarURL(raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return newError("avatar_url", "invalid avatar URL")
	}
	return nil
}

// Signup поля формы регистрации
type Signup struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Birthday  string
	AvatarURL string
}

// ValidateSignup проверяет форму регистрации и возвращает первую ошибку
func ValidateSignup(s Signup, minPassword, maxPassword int) error {
	checks := []error{
		ValidateEmail(s.Email),
		ValidatePassword(s.Password, minPassword, maxPassword),
		ValidateName("first_name", s.FirstName),
		ValidateName("last_name", s.LastName),
		ValidateBirthday(s.Birthday),
		ValidateAvatarURL(s.AvatarURL),
	}
	for _, err := range checks {
		if err != nil {
			return err
		}
	}
	return nil
}
