package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Константы валидации
const (
	MinTenderTitleLength       = 3
	MaxTenderTitleLength       = 200
	MaxTenderCategoryLength    = 100
	MinTenderDescriptionLength = 10
	MaxTenderDescriptionLength = 5000
	MaxCompanyNameLength       = 200
	MaxContactPersonLength     = 100
	MaxCustomMessageLength     = 5000
	MaxBudget                  = 1000000000.0 // 1 миллиард
)

var (
	emailLocalRegex  = regexp.MustCompile(`^[a-z0-9._+-]+$`)
	emailDomainRegex = regexp.MustCompile(`^[a-z0-9.-]+\.[a-z]{2,}$`)
)

// ValidateLength проверяет длину строки.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return fmt.Errorf("%s должен быть не менее %d символов", fieldName, min)
	}
	if max > 0 && length > max {
		return fmt.Errorf("%s должен быть не более %d символов", fieldName, max)
	}
	return nil
}

// ValidateEmail проверяет формат email.
func ValidateEmail(email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return fmt.Errorf("email обязателен")
	}

	// Базовая проверка формата
	if !strings.Contains(email, "@") {
		return fmt.Errorf("email должен содержать символ @")
	}

	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return fmt.Errorf("некорректный формат email")
	}

	localPart := parts[0]
	domainPart := parts[1]

	if len(localPart) == 0 || len(localPart) > 64 {
		return fmt.Errorf("локальная часть email должна быть от 1 до 64 символов")
	}

	if len(domainPart) == 0 || len(domainPart) > 255 {
		return fmt.Errorf("доменная часть email должна быть от 1 до 255 символов")
	}

	if !strings.Contains(domainPart, ".") {
		return fmt.Errorf("доменная часть email должна содержать точку")
	}

	if !emailLocalRegex.MatchString(localPart) {
		return fmt.Errorf("локальная часть email содержит недопустимые символы")
	}

	if !emailDomainRegex.MatchString(domainPart) {
		return fmt.Errorf("доменная часть email имеет некорректный формат")
	}

	return nil
}

// ValidateNonEmpty проверяет, что строка не пустая.
func ValidateNonEmpty(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s не может быть пустым", fieldName)
	}
	return nil
}

// ValidateTenderTitle проверяет название тендера.
func ValidateTenderTitle(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Errorf("название тендера обязательно")
	}
	return ValidateLength("название тендера", title, MinTenderTitleLength, MaxTenderTitleLength)
}

// ValidateTenderDescription проверяет описание тендера.
func ValidateTenderDescription(description string) error {
	description = strings.TrimSpace(description)
	if description == "" {
		return fmt.Errorf("описание тендера обязательно")
	}
	return ValidateLength("описание тендера", description, MinTenderDescriptionLength, MaxTenderDescriptionLength)
}

// ValidateCategory проверяет категорию тендера.
func ValidateCategory(category string) error {
	category = strings.TrimSpace(category)
	if category == "" {
		return fmt.Errorf("категория тендера обязательна")
	}
	return ValidateLength("категория", category, 0, MaxTenderCategoryLength)
}

// ValidateBudget проверяет бюджет тендера.
func ValidateBudget(budget float64) error {
	if budget <= 0 {
		return fmt.Errorf("бюджет должен быть положительным")
	}
	if budget > MaxBudget {
		return fmt.Errorf("бюджет не может превышать %.0f", MaxBudget)
	}
	return nil
}

// ValidateCompanyName проверяет название компании-заявителя.
func ValidateCompanyName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("название компании обязательно")
	}
	return ValidateLength("название компании", name, 0, MaxCompanyNameLength)
}

// ValidateContactPerson проверяет контактное лицо, если оно указано.
func ValidateContactPerson(person *string) error {
	if person == nil || strings.TrimSpace(*person) == "" {
		return nil
	}
	return ValidateLength("контактное лицо", strings.TrimSpace(*person), 0, MaxContactPersonLength)
}

// ValidateOptionalEmail проверяет email, только если он указан.
func ValidateOptionalEmail(email *string) error {
	if email == nil || strings.TrimSpace(*email) == "" {
		return nil
	}
	return ValidateEmail(*email)
}

// ValidateCustomMessage проверяет текст произвольного уведомления.
func ValidateCustomMessage(message string) error {
	message = strings.TrimSpace(message)
	if message == "" {
		return fmt.Errorf("текст сообщения обязателен для шаблона custom")
	}
	return ValidateLength("текст сообщения", message, 0, MaxCustomMessageLength)
}
