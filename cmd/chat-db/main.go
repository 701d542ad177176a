// Command chat-db is a standalone migration and seeding CLI for the SQLite
// store, grounded on the teacher's tinode-db command: a single binary that
// applies schema migrations and optionally loads a JSON fixture of demo
// accounts, the way tinode-db/main.go loads its own data.json.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/rustchat/chatd/internal/auth"
	"github.com/rustchat/chatd/internal/store"
	"github.com/rustchat/chatd/internal/types"
)

// seedUser mirrors the shape of tinode-db's data.json User records, trimmed
// to what this schema actually persists.
type seedUser struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
	Verified    bool   `json:"verified"`
}

type seedFile struct {
	Users []seedUser `json:"users"`
}

func main() {
	dsn := flag.String("dsn", "./chat.db", "SQLite DSN to migrate/seed")
	seedPath := flag.String("seed", "", "path to a JSON fixture of demo accounts to load")
	flag.Parse()

	st, err := store.Open(*dsn)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer st.Close()
	log.Printf("schema migrated at %s", *dsn)

	if *seedPath == "" {
		return
	}
	if err := loadSeed(st, *seedPath); err != nil {
		log.Fatalf("load seed: %v", err)
	}
}

func loadSeed(st *store.Store, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()

	var sf seedFile
	if err := json.NewDecoder(f).Decode(&sf); err != nil {
		return fmt.Errorf("parse seed file: %w", err)
	}

	ctx := context.Background()
	for _, u := range sf.Users {
		if _, err := st.GetAccountByEmail(ctx, u.Email); err == nil {
			log.Printf("seed: %s already exists, skipping", u.Email)
			continue
		} else if !store.IsNotFound(err) {
			return fmt.Errorf("look up %s: %w", u.Email, err)
		}

		hash, err := auth.HashPassword(u.Password)
		if err != nil {
			return fmt.Errorf("hash password for %s: %w", u.Email, err)
		}
		acct := newSeedAccount(u, hash)
		if err := st.InsertAccount(ctx, acct); err != nil {
			return fmt.Errorf("insert %s: %w", u.Email, err)
		}
		if u.Verified {
			if err := st.SetEmailVerified(ctx, acct.ID); err != nil {
				return fmt.Errorf("verify %s: %w", u.Email, err)
			}
		}
		log.Printf("seed: created account %s", u.Email)
	}
	return nil
}

func newSeedAccount(u seedUser, hash string) store.Account {
	acct := store.Account{
		ID:           types.NewAccountId(),
		Email:        u.Email,
		PasswordHash: hash,
		Status:       store.StatusActive,
		CreatedAt:    time.Now().UTC(),
	}
	if u.DisplayName != "" {
		acct.DisplayName.String, acct.DisplayName.Valid = u.DisplayName, true
	}
	return acct
}
