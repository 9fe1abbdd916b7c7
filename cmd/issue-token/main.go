// Команда issue-token выпускает access токен администратора портала.
//
//	go run ./cmd/issue-token -admin 6f1c... -role admin
//	go run ./cmd/issue-token -hash-password 's3cret'   # значение для ADMIN_PASSWORD_HASH
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"

	"github.com/ignatzorin/tender-portal/internal/config"
	"github.com/ignatzorin/tender-portal/internal/service"
)

func main() {
	adminFlag := flag.String("admin", "", "UUID администратора (по умолчанию генерируется новый)")
	role := flag.String("role", service.RoleAdmin, "роль в токене")
	password := flag.String("hash-password", "", "вывести bcrypt-хеш пароля и выйти")
	flag.Parse()

	if *password != "" {
		hash, err := service.HashPassword(*password)
		if err != nil {
			log.Fatalf("issue-token: %v", err)
		}
		fmt.Println(hash)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("issue-token: ошибка загрузки конфигурации: %v", err)
	}

	adminID := uuid.New()
	if *adminFlag != "" {
		if adminID, err = uuid.Parse(*adminFlag); err != nil {
			log.Fatalf("issue-token: некорректный UUID администратора: %v", err)
		}
	}

	tokens := service.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL)
	token, exp, err := tokens.Issue(adminID, *role)
	if err != nil {
		log.Fatalf("issue-token: %v", err)
	}

	fmt.Fprintf(os.Stderr, "admin: %s\nexpires: %s\n", adminID, exp.Format("2006-01-02 15:04:05 MST"))
	fmt.Println(token)
}
