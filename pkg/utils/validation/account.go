package validation

import (
	"net/mail"
	"strings"
	"unicode/utf8"
)

const MinPasswordLength = 8

// Registration devolve as mensagens de erro do cadastro, vazia quando tudo está certo
func Registration(email, password, name string) []string {
	var errs []string
	if _, err := mail.ParseAddress(email); err != nil || strings.Contains(email, " ") {
		errs = append(errs, "E-mail inválido")
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		errs = append(errs, "A senha deve ter pelo menos 8 caracteres")
	}
	if strings.TrimSpace(name) == "" {
		errs = append(errs, "Informe seu nome")
	}
	return errs
}
