// Package seed fills a development database with businesses, posts,
// engagement, conversations and directory listings.
package seed

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/zfogg/bizfeed/backend/internal/directory"
	"github.com/zfogg/bizfeed/backend/internal/logger"
	"github.com/zfogg/bizfeed/backend/internal/messaging"
	"github.com/zfogg/bizfeed/backend/internal/models"
	"github.com/zfogg/bizfeed/backend/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EmailDomain marks seeded accounts so Clean can find them again
const EmailDomain = "seed.bizfeed.dev"

// DefaultPassword is the password of every seeded account
const DefaultPassword = "password123"

var (
	postCategories = []string{"food", "retail", "services", "home", "beauty", "fitness"}
	hashtags       = []string{"local", "deals", "smallbusiness", "grandopening", "weekend", "handmade", "new"}
)

// Options sizes a seeding run
type Options struct {
	Users         int
	PostsPerUser  int
	Providers     int
	Conversations int
}

// DevOptions is the size of `seed dev`
var DevOptions = Options{Users: 40, PostsPerUser: 4, Providers: 30, Conversations: 25}

// Seeder handles database seeding operations
type Seeder struct {
	db *gorm.DB
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB) *Seeder {
	_ = gofakeit.Seed(time.Now().UnixNano())
	return &Seeder{db: db}
}

// SeedDev seeds the development database with realistic data
func (s *Seeder) SeedDev() error {
	return s.Seed(DevOptions)
}

// Seed creates one batch of fake data sized by opts
func (s *Seeder) Seed(opts Options) error {
	logger.Log.Info("Creating categories...")
	if err := s.seedCategories(); err != nil {
		return fmt.Errorf("failed to seed categories: %w", err)
	}

	logger.Log.Info("Creating users...")
	users, err := s.seedUsers(opts.Users)
	if err != nil {
		return fmt.Errorf("failed to seed users: %w", err)
	}

	logger.Log.Info("Creating posts...")
	posts, err := s.seedPosts(users, opts.PostsPerUser)
	if err != nil {
		return fmt.Errorf("failed to seed posts: %w", err)
	}

	logger.Log.Info("Creating engagement...")
	if err := s.seedEngagement(users, posts); err != nil {
		return fmt.Errorf("failed to seed engagement: %w", err)
	}

	logger.Log.Info("Creating follows...")
	if err := s.seedFollows(users); err != nil {
		return fmt.Errorf("failed to seed follows: %w", err)
	}

	logger.Log.Info("Creating conversations...")
	if err := s.seedConversations(users, opts.Conversations); err != nil {
		return fmt.Errorf("failed to seed conversations: %w", err)
	}

	logger.Log.Info("Creating providers...")
	if err := s.seedProviders(users, opts.Providers); err != nil {
		return fmt.Errorf("failed to seed providers: %w", err)
	}

	logger.Log.Info("Seed complete",
		zap.Int("users", len(users)),
		zap.Int("posts", len(posts)),
	)
	return nil
}

// Clean removes every seeded account and everything it owns
func (s *Seeder) Clean() error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var ids []string
		if err := tx.Model(&models.User{}).Where("email LIKE ?", "%@"+EmailDomain).Pluck("id", &ids).Error; err != nil {
			return fmt.Errorf("failed to find seed users: %w", err)
		}
		if len(ids) == 0 {
			return nil
		}

		var postIDs []string
		if err := tx.Model(&models.Post{}).Where("user_id IN ?", ids).Pluck("id", &postIDs).Error; err != nil {
			return fmt.Errorf("failed to find seed posts: %w", err)
		}

		for _, model := range []interface{}{&models.PostTag{}, &models.PostLike{}, &models.PostRating{}, &models.Comment{}, &models.PostImage{}, &models.PostVideo{}} {
			if err := tx.Where("post_id IN ?", nonEmpty(postIDs)).Delete(model).Error; err != nil {
				return fmt.Errorf("failed to clean %T: %w", model, err)
			}
		}

		steps := []struct {
			model interface{}
			where string
			args  []interface{}
		}{
			{&models.PostLike{}, "user_id IN ?", []interface{}{ids}},
			{&models.PostRating{}, "user_id IN ?", []interface{}{ids}},
			{&models.Comment{}, "user_id IN ?", []interface{}{ids}},
			{&models.PostImage{}, "user_id IN ?", []interface{}{ids}},
			{&models.PostVideo{}, "user_id IN ?", []interface{}{ids}},
			{&models.Post{}, "user_id IN ?", []interface{}{ids}},
			{&models.Message{}, "sender_id IN ? OR recipient_id IN ?", []interface{}{ids, ids}},
			{&models.Conversation{}, "user1_id IN ? OR user2_id IN ?", []interface{}{ids, ids}},
			{&models.Notification{}, "user_id IN ?", []interface{}{ids}},
			{&models.Follow{}, "follower_id IN ? OR following_id IN ?", []interface{}{ids, ids}},
			{&models.ProfileService{}, "user_id IN ?", []interface{}{ids}},
			{&models.Profile{}, "user_id IN ?", []interface{}{ids}},
			{&models.Provider{}, "user_id IN ?", []interface{}{ids}},
			{&models.User{}, "id IN ?", []interface{}{ids}},
		}
		for _, step := range steps {
			if err := tx.Where(step.where, step.args...).Delete(step.model).Error; err != nil {
				return fmt.Errorf("failed to clean %T: %w", step.model, err)
			}
		}

		logger.Log.Info("Seed data removed", zap.Int("users", len(ids)), zap.Int("posts", len(postIDs)))
		return nil
	})
}

// DefaultCategoryNames lists the seeded categories, excluding the "all" pseudo-category
func DefaultCategoryNames() []string {
	var names []string
	for _, c := range directory.DefaultCategories {
		if c.ID != "all" {
			names = append(names, c.Name)
		}
	}
	return names
}

func (s *Seeder) seedCategories() error {
	for _, c := range directory.DefaultCategories {
		if c.ID == "all" {
			continue
		}
		row := models.Category{Name: c.Name, Icon: c.Icon}
		if err := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
			return err
		}
	}
	return nil
}

// seedUsers creates users with realistic data. About half are business accounts.
func (s *Seeder) seedUsers(count int) ([]models.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	users := make([]models.User, 0, count)
	for i := 0; i < count; i++ {
		username := seedUsername(gofakeit.Username(), i)

		user := models.User{
			Username:     username,
			Email:        fmt.Sprintf("%s@%s", strings.ToLower(username), EmailDomain),
			PasswordHash: string(hashed),
			DisplayName:  gofakeit.Name(),
			ProfileImage: fmt.Sprintf("https://i.pravatar.cc/150?u=%s", username),
			AccountType:  models.AccountPersonal,
		}
		business := i%2 == 0
		if business {
			user.AccountType = models.AccountBusiness
			user.BusinessCategory = postCategories[rand.Intn(len(postCategories))]
		}
		if err := s.db.Create(&user).Error; err != nil {
			return nil, err
		}

		if business {
			profile := models.Profile{
				UserID:       user.ID,
				Username:     user.Username,
				BusinessName: gofakeit.Company(),
				Tagline:      gofakeit.HipsterSentence(),
				Description:  gofakeit.HipsterSentence(),
				Website:      fmt.Sprintf("https://%s.example.com", strings.ToLower(username)),
			}
			if err := s.db.Create(&profile).Error; err != nil {
				return nil, err
			}
			for j := 0; j < gofakeit.Number(1, 3); j++ {
				svc := models.ProfileService{
					ProfileID:   profile.ID,
					UserID:      user.ID,
					Title:       gofakeit.Hobby(),
					Price:       fmt.Sprintf("$%d", gofakeit.Number(20, 250)),
					Description: gofakeit.HipsterSentence(),
				}
				if err := s.db.Create(&svc).Error; err != nil {
					return nil, err
				}
			}
		}
		users = append(users, user)
	}
	return users, nil
}

// seedUsername keeps generated names inside the signup rules:
// letters, digits, '_' and '.', 3 to 30 characters, unique per run.
func seedUsername(raw string, i int) string {
	var b strings.Builder
	for _, r := range raw {
		if r == '_' || r == '.' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	name := b.String()
	if len(name) > 20 {
		name = name[:20]
	}
	return fmt.Sprintf("%s_%d%d", name, i, gofakeit.Number(100, 999))
}

func (s *Seeder) seedPosts(users []models.User, perUser int) ([]models.Post, error) {
	var posts []models.Post
	for _, user := range users {
		if user.AccountType != models.AccountBusiness {
			continue
		}
		for i := 0; i < perUser; i++ {
			tags := []string{hashtags[rand.Intn(len(hashtags))]}
			post := models.Post{
				UserID:   user.ID,
				Caption:  fmt.Sprintf("%s #%s", gofakeit.HipsterSentence(), tags[0]),
				Category: postCategories[rand.Intn(len(postCategories))],
			}
			if err := s.db.Create(&post).Error; err != nil {
				return nil, err
			}
			createdAt := gofakeit.DateRange(time.Now().AddDate(0, 0, -30), time.Now())
			if err := s.db.Model(&post).Update("created_at", createdAt).Error; err != nil {
				return nil, err
			}

			pid := post.ID
			for j := 0; j < gofakeit.Number(1, 3); j++ {
				img := models.PostImage{
					PostID:   &pid,
					UserID:   user.ID,
					ImageURL: fmt.Sprintf("https://picsum.photos/seed/%s/800/600", gofakeit.UUID()),
				}
				if err := s.db.Create(&img).Error; err != nil {
					return nil, err
				}
			}
			for _, tag := range tags {
				if err := s.db.Create(&models.PostTag{PostID: pid, Tag: tag}).Error; err != nil {
					return nil, err
				}
			}
			posts = append(posts, post)
		}
	}
	return posts, nil
}

// seedEngagement has random users like, rate and comment on posts
func (s *Seeder) seedEngagement(users []models.User, posts []models.Post) error {
	if len(users) == 0 {
		return nil
	}
	for _, post := range posts {
		for _, idx := range rand.Perm(len(users))[:gofakeit.Number(0, min(len(users), 8))] {
			user := users[idx]
			if err := s.db.Clauses(clause.OnConflict{DoNothing: true}).
				Create(&models.PostLike{PostID: post.ID, UserID: user.ID}).Error; err != nil {
				return err
			}
			if gofakeit.Number(1, 100) <= 50 {
				rating := models.PostRating{PostID: post.ID, UserID: user.ID, Rating: float64(gofakeit.Number(3, 5))}
				if err := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&rating).Error; err != nil {
					return err
				}
			}
			if gofakeit.Number(1, 100) <= 30 {
				comment := models.Comment{PostID: post.ID, UserID: user.ID, Content: gofakeit.HipsterSentence()}
				if err := s.db.Create(&comment).Error; err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (s *Seeder) seedFollows(users []models.User) error {
	for _, follower := range users {
		for _, idx := range rand.Perm(len(users))[:min(len(users), gofakeit.Number(0, 5))] {
			followee := users[idx]
			if followee.ID == follower.ID {
				continue
			}
			follow := models.Follow{FollowerID: follower.ID, FollowingID: followee.ID}
			if err := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&follow).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

// quietNotifier drops message notifications for seed traffic
type quietNotifier struct{}

func (quietNotifier) MessageSent(context.Context, *models.User, *models.User, string, string) {}

// seedConversations sends messages through the messaging service so the
// conversation caches and unread counters stay consistent.
func (s *Seeder) seedConversations(users []models.User, count int) error {
	if len(users) < 2 {
		return nil
	}
	svc := messaging.NewService(s.db, repository.NewUserRepository(s.db), quietNotifier{})
	ctx := context.Background()

	for i := 0; i < count; i++ {
		pair := rand.Perm(len(users))[:2]
		a, b := users[pair[0]], users[pair[1]]

		for j := 0; j < gofakeit.Number(1, 6); j++ {
			sender, recipient := &a, &b
			if j%2 == 1 {
				sender, recipient = &b, &a
			}
			_, err := svc.Send(ctx, sender, messaging.SendInput{
				RecipientID: recipient.ID,
				MessageText: gofakeit.HipsterSentence(),
			})
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Seeder) seedProviders(users []models.User, count int) error {
	var categories []string
	for _, c := range directory.DefaultCategories {
		if c.ID != "all" {
			categories = append(categories, c.ID)
		}
	}

	for i := 0; i < count; i++ {
		lat, lng := 40.0+rand.Float64(), -74.0+rand.Float64()
		provider := models.Provider{
			Name:        gofakeit.Company(),
			Category:    categories[rand.Intn(len(categories))],
			Image:       fmt.Sprintf("https://picsum.photos/seed/%s/400/300", gofakeit.UUID()),
			Rating:      float64(gofakeit.Number(30, 50)) / 10,
			ReviewCount: gofakeit.Number(0, 400),
			Distance:    fmt.Sprintf("%d.%d mi", gofakeit.Number(0, 15), gofakeit.Number(0, 9)),
			LocationLat: &lat,
			LocationLng: &lng,
			Services:    []string{gofakeit.Hobby(), gofakeit.Hobby()},
		}
		if len(users) > 0 {
			owner := users[rand.Intn(len(users))].ID
			provider.UserID = &owner
		}
		if err := s.db.Create(&provider).Error; err != nil {
			return err
		}
	}
	return nil
}

// nonEmpty keeps IN clauses valid when there are no ids
func nonEmpty(ids []string) []string {
	if len(ids) == 0 {
		return []string{""}
	}
	return ids
}

