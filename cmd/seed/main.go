package main

import (
	"context"
	"log"
	"time"

	"golang.org/x/crypto/bcrypt"

	"newsdesk/internal/config"
	"newsdesk/internal/db"
	"newsdesk/internal/model"
	"newsdesk/internal/query"
	"newsdesk/internal/repository"
	"newsdesk/internal/service"
)

type seedArticle struct {
	title    string
	body     string
	imageURL string
	author   string
	ago      time.Duration
	publish  bool
	tags     []string
}

var seedUsers = []model.User{
	{Username: "alice", Email: "alice@example.com"},
	{Username: "bob", Email: "bob@example.com"},
}

var seedArticles = []seedArticle{
	{
		title:    "Welcome to Newsdesk",
		body:     "A short tour of the content API: articles, tags, filters and pagination.",
		imageURL: "https://images.example.com/welcome.png",
		author:   "alice",
		ago:      72 * time.Hour,
		publish:  true,
		tags:     []string{"news", "announcements"},
	},
	{
		title:   "Filtering articles",
		body:    "Every list filter is optional and malformed values are simply ignored.",
		author:  "alice",
		ago:     48 * time.Hour,
		publish: true,
		tags:    []string{"docs"},
	},
	{
		title:   "Draft: roadmap",
		body:    "Unpublished draft visible through published=false.",
		author:  "bob",
		ago:     2 * time.Hour,
		tags:    []string{"news"},
	},
}

// Seeds demo users, tags and articles through the same service layer the API
// uses, so validation and tag get-or-create behave exactly as in production.
func main() {
	cfg := config.Load()
	ctx := context.Background()

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("database init: %v", err)
	}
	if err := gormDB.AutoMigrate(&model.User{}, &model.Tag{}, &model.Article{}); err != nil {
		log.Fatalf("auto-migrate: %v", err)
	}

	userRepo := repository.NewUserRepository(gormDB)
	tagRepo := repository.NewTagRepository(gormDB)
	articleRepo := repository.NewArticleRepository(gormDB)
	articleService := service.NewArticleService(articleRepo, tagRepo, userRepo, nil)

	authors := make(map[string]uint, len(seedUsers))
	for _, u := range seedUsers {
		existing, err := userRepo.FindByUsername(ctx, u.Username)
		if err == nil {
			authors[u.Username] = existing.ID
			continue
		}
		hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("hash password: %v", err)
		}
		user := u
		user.PasswordHash = string(hash)
		if err := userRepo.Create(ctx, &user); err != nil {
			log.Fatalf("create user %s: %v", user.Username, err)
		}
		authors[user.Username] = user.ID
		log.Printf("created user %s (id %d)", user.Username, user.ID)
	}

	existing, _, err := articleRepo.List(ctx, query.ArticleFilter{Page: 1})
	if err != nil {
		log.Fatalf("list articles: %v", err)
	}
	if len(existing) > 0 {
		log.Printf("articles already present, skipping article seed")
		return
	}

	for _, a := range seedArticles {
		authorID := authors[a.author]
		publishDate := time.Now().Add(-a.ago)
		input := service.ArticleInput{
			Title:       &a.title,
			Body:        &a.body,
			PublishDate: &publishDate,
			Published:   &a.publish,
			TagNames:    &a.tags,
		}
		if a.imageURL != "" {
			input.ImageURL = &a.imageURL
		}
		created, err := articleService.Create(ctx, input, &authorID)
		if err != nil {
			log.Fatalf("create article %q: %v", a.title, err)
		}
		log.Printf("created article %q (id %d)", created.Title, created.ID)
	}
	log.Println("seed complete")
}
