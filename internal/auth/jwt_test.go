package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

// TestIssue тестирует создание JWT токена
func TestIssue(t *testing.T) {
	signer, err := NewSigner("", time.Hour)
	if err != nil {
		t.Fatalf("Ошибка создания Signer: %v", err)
	}

	token, err := signer.Issue("operator", false)
	if err != nil {
		t.Fatalf("Ошибка генерации JWT: %v", err)
	}

	// Проверяем, что токен содержит точки (разделители частей JWT)
	if strings.Count(token, ".") != 2 {
		t.Errorf("Неверный формат JWT токена: %s", token)
	}
}

// TestValidate тестирует валидацию JWT токена
func TestValidate(t *testing.T) {
	signer, err := NewSigner(GenerateSecureSecret(), time.Hour)
	if err != nil {
		t.Fatalf("Ошибка создания Signer: %v", err)
	}

	token, err := signer.Issue("admin", true)
	if err != nil {
		t.Fatalf("Ошибка генерации JWT: %v", err)
	}

	claims, err := signer.Validate(token)
	if err != nil {
		t.Fatalf("Валидный токен определен как недействительный: %v", err)
	}
	if claims.Operator != "admin" || !claims.IsAdmin {
		t.Errorf("Неверные claims: %+v", claims)
	}
	if claims.Subject != "admin" {
		t.Errorf("Неверный subject: %s", claims.Subject)
	}
}

// TestValidateInvalid тестирует валидацию недействительных токенов
func TestValidateInvalid(t *testing.T) {
	signer, _ := NewSigner("", time.Hour)
	other, _ := NewSigner("", time.Hour)
	foreign, _ := other.Issue("intruder", true)

	testCases := []string{
		"invalid.token.here",
		"",
		"not.a.jwt",
		"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.invalid.signature",
		foreign, // подписан другим ключом
	}

	for _, invalidToken := range testCases {
		if _, err := signer.Validate(invalidToken); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Недействительный токен принят: %q (err=%v)", invalidToken, err)
		}
	}
}

// TestValidateExpired тестирует истёкший токен
func TestValidateExpired(t *testing.T) {
	signer, _ := NewSigner("", time.Hour)
	signer.ttl = -time.Minute

	token, err := signer.Issue("operator", true)
	if err != nil {
		t.Fatalf("Ошибка генерации JWT: %v", err)
	}
	if _, err := signer.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Истёкший токен принят")
	}
}

// TestNewSignerSecret тестирует разбор секрета
func TestNewSignerSecret(t *testing.T) {
	if _, err := NewSigner("c2hvcnQ=", 0); !errors.Is(err, ErrWeakSecret) {
		t.Errorf("Короткий секрет принят: %v", err)
	}
	if _, err := NewSigner("%%%", 0); err == nil {
		t.Error("Некорректный base64 принят")
	}

	signer, err := NewSigner(GenerateSecureSecret(), 0)
	if err != nil {
		t.Fatalf("Ошибка создания Signer: %v", err)
	}
	if signer.ttl != 24*time.Hour {
		t.Errorf("TTL по умолчанию: %s", signer.ttl)
	}
}
