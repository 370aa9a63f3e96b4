// Package seed populates a development database with a usable workspace:
// one account per role, a batch of workflow requests with activity history,
// knowledge base articles and documents.
package seed

import (
	"fmt"
	"log"
	"os"
	"time"

	"docflow/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

// RosterEntry is one account in a seed roster file.
type RosterEntry struct {
	Name     string   `yaml:"name"`
	Email    string   `yaml:"email"`
	Password string   `yaml:"password"`
	Role     string   `yaml:"role"`
	Team     string   `yaml:"team"`
	Extra    []string `yaml:"extra_roles"`
}

// Roster is the root of a seed roster YAML file.
type Roster struct {
	Users []RosterEntry `yaml:"users"`
}

// defaultRoster covers every role once so each permission path is reachable
// in a fresh workspace.
var defaultRoster = []RosterEntry{
	{Name: "Alice Admin", Email: "admin@docflow.local", Password: "admin12345", Role: "ADMIN", Team: "Platform"},
	{Name: "Mark Manager", Email: "manager@docflow.local", Password: "manager12345", Role: "MANAGER", Team: "Docs"},
	{Name: "Erin Editor", Email: "editor@docflow.local", Password: "editor12345", Role: "EDITOR", Team: "Docs"},
	{Name: "Lena Legal", Email: "legal@docflow.local", Password: "legal12345", Role: "LEGAL", Team: "Compliance"},
	{Name: "Rita Requester", Email: "requester@docflow.local", Password: "requester12345", Role: "REQUESTER", Team: "Product"},
}

// Options controls seeding volume.
type Options struct {
	// RosterPath optionally points at a YAML file replacing the default roster.
	RosterPath string
	// ExtraUsers is the number of random requester accounts to generate.
	ExtraUsers int
	// Requests is the number of workflow requests to generate.
	Requests int
	// Deterministic seeds gofakeit with a fixed value.
	Deterministic bool
}

// Run seeds the database. It is idempotent on the roster accounts (matched
// by email) and additive for generated data.
func Run(db *gorm.DB, opts Options) error {
	if opts.Deterministic {
		gofakeit.Seed(42)
	}

	roster := defaultRoster
	if opts.RosterPath != "" {
		loaded, err := loadRoster(opts.RosterPath)
		if err != nil {
			return fmt.Errorf("failed to load roster: %w", err)
		}
		roster = loaded
	}

	users, err := seedUsers(db, roster, opts.ExtraUsers)
	if err != nil {
		return err
	}

	if err := seedRequests(db, users, opts.Requests); err != nil {
		return err
	}
	if err := seedKnowledge(db); err != nil {
		return err
	}
	if err := seedDocuments(db); err != nil {
		return err
	}

	log.Printf("Seeding complete: %d users", len(users))
	return nil
}

func loadRoster(path string) ([]RosterEntry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var roster Roster
	if err := yaml.Unmarshal(raw, &roster); err != nil {
		return nil, err
	}
	if len(roster.Users) == 0 {
		return nil, fmt.Errorf("roster file %s contains no users", path)
	}
	return roster.Users, nil
}

func seedUsers(db *gorm.DB, roster []RosterEntry, extras int) ([]models.User, error) {
	var users []models.User

	for _, entry := range roster {
		var existing models.User
		err := db.Where("email = ?", entry.Email).First(&existing).Error
		if err == nil {
			users = append(users, existing)
			continue
		}
		if err != gorm.ErrRecordNotFound {
			return nil, err
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(entry.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		extra := make([]models.Role, 0, len(entry.Extra))
		for _, r := range entry.Extra {
			extra = append(extra, models.Role(r))
		}
		user := models.User{
			Name:       entry.Name,
			Email:      entry.Email,
			Password:   string(hash),
			Role:       models.Role(entry.Role),
			Team:       entry.Team,
			ExtraRoles: extra,
		}
		if err := db.Create(&user).Error; err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	// Random requester accounts to make lists and metrics feel populated.
	hash, err := bcrypt.GenerateFromPassword([]byte("password12345"), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	for i := 0; i < extras; i++ {
		user := models.User{
			Name:     gofakeit.Name(),
			Email:    gofakeit.Email(),
			Password: string(hash),
			Role:     models.RoleRequester,
			Team:     gofakeit.RandomString([]string{"Product", "Docs", "Support", "Platform"}),
		}
		if err := db.Create(&user).Error; err != nil {
			// Random emails can collide; skip and continue.
			continue
		}
		users = append(users, user)
	}

	return users, nil
}

var seedTypes = []models.RequestType{
	models.TypeFeature, models.TypeChange, models.TypeRegulatory, models.TypeFAQ, models.TypeOther,
}

func seedRequests(db *gorm.DB, users []models.User, count int) error {
	if len(users) == 0 || count == 0 {
		return nil
	}

	now := time.Now().UTC()
	for i := 0; i < count; i++ {
		owner := users[gofakeit.Number(0, len(users)-1)]
		// Spread creation over the last sixty days so both metric windows
		// have data.
		createdAt := now.Add(-time.Duration(gofakeit.Number(0, 59*24)) * time.Hour)
		progress := gofakeit.Number(0, len(models.RequestStatuses)-1)
		status := models.RequestStatuses[progress]

		req := models.Request{
			Title:       gofakeit.Sentence(5),
			Description: gofakeit.Paragraph(1, 3, 8, " "),
			Audience:    gofakeit.RandomString([]string{"End users", "Internal teams", "Partners"}),
			Type:        seedTypes[gofakeit.Number(0, len(seedTypes)-1)],
			Status:      status,
			SlaDays:     gofakeit.Number(3, 14),
			OwnerID:     owner.ID,
			CreatedAt:   createdAt,
			UpdatedAt:   createdAt,
		}
		if status == models.StatusPublished {
			publishedAt := createdAt.Add(time.Duration(gofakeit.Number(1, 12*24)) * time.Hour)
			req.PublishedAt = &publishedAt
		}
		if err := db.Create(&req).Error; err != nil {
			return err
		}

		// One activity per traversed status, spaced out after creation.
		at := createdAt
		for j := 0; j <= progress; j++ {
			at = at.Add(time.Duration(gofakeit.Number(1, 48)) * time.Hour)
			activity := models.Activity{
				RequestID: req.ID,
				UserID:    owner.ID,
				Action:    models.StatusAction(models.RequestStatuses[j]),
				CreatedAt: at,
			}
			if err := db.Create(&activity).Error; err != nil {
				return err
			}
		}
	}

	return nil
}

func seedKnowledge(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.KnowledgeBaseItem{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	items := []models.KnowledgeBaseItem{
		{
			Title:   "Style guide",
			Content: "House style for all published documentation. Use sentence case in headings and address the reader directly.",
			Tags:    []string{"style", "writing"},
		},
		{
			Title:   "Review checklist",
			Content: "Before moving a request to APPROVAL, confirm terminology, screenshots and legal notices are current.",
			Tags:    []string{"review", "process"},
		},
		{
			Title:   "SLA policy",
			Content: "Default turnaround is seven days from intake. Regulatory requests always get an explicit due date.",
			Tags:    []string{"sla", "process"},
		},
	}
	for i := range items {
		if err := db.Create(&items[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

func seedDocuments(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.Document{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	doc := models.Document{
		Title:    "Getting started",
		Content:  "Welcome to the workspace. This document walks a new writer through the intake pipeline.",
		Version:  "1.0",
		Sections: []string{"Overview", "Pipeline", "Roles"},
	}
	if err := db.Create(&doc).Error; err != nil {
		return err
	}
	version := models.DocumentVersion{
		DocumentID: doc.ID,
		Version:    doc.Version,
		Title:      doc.Title,
		Content:    doc.Content,
	}
	return db.Create(&version).Error
}
