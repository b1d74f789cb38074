package main

import (
	"context"
	"log"
	"time"

	"golang.org/x/crypto/bcrypt"

	"tasktrack/internal/config"
	"tasktrack/internal/db"
	"tasktrack/internal/model"
	"tasktrack/internal/repository"
)

const demoPassword = "password123"

type demoUser struct {
	Email string
	Name  string
	Tasks []model.Task
}

// demoUsers is the fixture set installed by the seeder. Every user gets
// the same demo password.
var demoUsers = []demoUser{
	{
		Email: "alice@example.com",
		Name:  "Alice",
		Tasks: []model.Task{
			{Title: "Write project proposal", Description: "Draft and circulate for review", Priority: model.PriorityHigh},
			{Title: "Book dentist appointment", Priority: model.PriorityLow},
			{Title: "Prepare sprint demo", Description: "Slides plus a live walkthrough", Priority: model.PriorityMedium, Completed: true},
		},
	},
	{
		Email: "bob@example.com",
		Name:  "Bob",
		Tasks: []model.Task{
			{Title: "Renew car insurance", Priority: model.PriorityHigh},
			{Title: "Clean the garage", Description: "Before the weekend", Priority: model.PriorityLow},
		},
	},
}

func main() {
	log.Println("Starting seed script...")

	cfg := config.Load()

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Println("Connected to database")

	if err := gormDB.AutoMigrate(&model.User{}, &model.Task{}); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	userRepo := repository.NewUserRepository(gormDB)
	taskRepo := repository.NewTaskRepository(gormDB)
	ctx := context.Background()

	hashed, err := bcrypt.GenerateFromPassword([]byte(demoPassword), 10)
	if err != nil {
		log.Fatalf("Failed to hash demo password: %v", err)
	}

	usersCreated, tasksCreated, skipped := 0, 0, 0
	for _, du := range demoUsers {
		if existing, err := userRepo.FindByEmail(ctx, du.Email); err == nil && existing != nil {
			log.Printf("User %s already exists, skipping", du.Email)
			skipped++
			continue
		}

		user := &model.User{
			Email:        du.Email,
			Name:         du.Name,
			PasswordHash: string(hashed),
		}
		if err := userRepo.Create(ctx, user); err != nil {
			log.Fatalf("Failed to create user %s: %v", du.Email, err)
		}
		usersCreated++

		for i := range du.Tasks {
			task := du.Tasks[i]
			task.UserID = user.ID
			task.DueDate = time.Now().AddDate(0, 0, i+1)
			if err := taskRepo.Create(ctx, &task); err != nil {
				log.Fatalf("Failed to create task %q: %v", task.Title, err)
			}
			tasksCreated++
		}
	}

	log.Printf("Seed completed successfully!")
	log.Printf("  - Users created: %d (skipped %d existing)", usersCreated, skipped)
	log.Printf("  - Tasks created: %d", tasksCreated)
	log.Printf("  - Demo password for all users: %s", demoPassword)
}
