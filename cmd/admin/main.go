// Command admin manages administrator accounts.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"

	"bloh/internal/bootstrap"
	"bloh/internal/config"
	"bloh/internal/models"
	"bloh/internal/repository"
)

func usage() {
	fmt.Println("Usage:")
	fmt.Println("  go run ./cmd/admin promote <user_id>   - Promote user to admin")
	fmt.Println("  go run ./cmd/admin demote <user_id>    - Demote user from admin")
	fmt.Println("  go run ./cmd/admin list-admins         - List all admins")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, _, err := bootstrap.InitRuntime(cfg, bootstrap.Options{})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}
	users := repository.NewUserRepository(db)
	ctx := context.Background()

	switch os.Args[1] {
	case "promote", "demote":
		if len(os.Args) < 3 {
			usage()
			os.Exit(1)
		}
		id, err := strconv.ParseUint(os.Args[2], 10, 64)
		if err != nil || id == 0 {
			fmt.Printf("Invalid user ID %q\n", os.Args[2])
			os.Exit(1)
		}
		err = setAdmin(ctx, os.Stdout, users, uint(id), os.Args[1] == "promote")
		if err != nil {
			if models.ErrorCode(err) == models.CodeNotFound {
				fmt.Printf("User with ID %d not found\n", id)
				os.Exit(1)
			}
			log.Fatalf("Failed to %s user: %v", os.Args[1], err)
		}

	case "list-admins":
		if err := listAdmins(ctx, os.Stdout, users); err != nil {
			log.Fatalf("Failed to fetch admins: %v", err)
		}

	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		usage()
		os.Exit(1)
	}
}

func setAdmin(ctx context.Context, out io.Writer, users repository.UserRepository, id uint, admin bool) error {
	user, err := users.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if user.IsAdmin() == admin {
		state := "already an admin"
		if !admin {
			state = "not an admin"
		}
		_, _ = fmt.Fprintf(out, "User %s (ID: %d) is %s\n", user.Username, user.ID, state)
		return nil
	}

	if admin {
		user.Role = models.RoleAdmin
	} else {
		user.Role = models.RoleUser
		user.IsStaff = false
	}
	if err := users.Update(ctx, user); err != nil {
		return err
	}

	verb := "promoted"
	if !admin {
		verb = "demoted"
	}
	_, _ = fmt.Fprintf(out, "Successfully %s %s (ID: %d)\n", verb, user.Username, user.ID)
	return nil
}

func listAdmins(ctx context.Context, out io.Writer, users repository.UserRepository) error {
	admins, err := users.ListAdmins(ctx)
	if err != nil {
		return err
	}
	if len(admins) == 0 {
		_, _ = fmt.Fprintln(out, "No admins found")
		return nil
	}
	for _, a := range admins {
		_, _ = fmt.Fprintf(out, "ID: %d | Username: %s | Email: %s\n", a.ID, a.Username, a.Email)
	}
	return nil
}
