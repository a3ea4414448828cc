package main

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/quocanhngo/gotalk-core/internal/calendar"
	"github.com/quocanhngo/gotalk-core/internal/config"
	"github.com/quocanhngo/gotalk-core/internal/delivery"
	"github.com/quocanhngo/gotalk-core/internal/model"
	"github.com/quocanhngo/gotalk-core/internal/presence"
	"github.com/quocanhngo/gotalk-core/internal/repository"
	"github.com/quocanhngo/gotalk-core/internal/service"
	"github.com/quocanhngo/gotalk-core/internal/ws"
	"github.com/quocanhngo/gotalk-core/pkg/auth"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const userCount = 10

func main() {
	cfg := config.Load()
	ctx := context.Background()

	// Force DB logging off to avoid noise
	db, err := gorm.Open(postgres.Open(cfg.DB.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	log.Println("✅ Connected to Database")

	userRepo := repository.NewUserRepository(db)
	relationRepo := repository.NewRelationRepository(db)
	jwtManager := auth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.Expiry)

	log.Printf("🌱 Seeding %d users...", userCount)
	users := make([]model.User, 0, userCount)
	for i := 1; i <= userCount; i++ {
		user, err := seedUser(ctx, db, userRepo, i)
		if err != nil {
			log.Printf("❌ Failed to seed user%d: %v", i, err)
			continue
		}
		users = append(users, *user)
	}
	if len(users) < 4 {
		log.Fatalf("❌ Not enough users to seed conversations")
	}

	// user1, user2 and user3 are friends; everyone else is a stranger,
	// so user4 -> user1 exercises the message request flow.
	for _, pair := range [][2]int{{0, 1}, {0, 2}, {1, 2}} {
		if err := relationRepo.AddFriendship(ctx, users[pair[0]].ID, users[pair[1]].ID); err != nil {
			log.Printf("❌ Failed to add friendship: %v", err)
		}
	}
	log.Println("✅ Friendships: user1 <-> user2 <-> user3")

	cal, err := calendar.New(cfg.Chat.Timezone)
	if err != nil {
		log.Fatalf("❌ Invalid calendar timezone: %v", err)
	}
	chatService := service.NewChatService(service.ChatDeps{
		Store:     repository.NewGormStore(db),
		Relations: relationRepo,
		Users:     userRepo,
		Tracker:   delivery.NewTracker(presence.NewMemoryRegistry()),
		Calendar:  cal,
		Events:    ws.NewHub(nil),
	})

	seedGroupChat(ctx, db, chatService, users[:3])
	seedMessageRequest(ctx, chatService, users[3], users[0])

	log.Println("🔑 Tokens:")
	for _, u := range users {
		token, err := jwtManager.GenerateToken(u.ID, u.Email, u.Name)
		if err != nil {
			log.Printf("❌ Failed to sign token for %s: %v", u.Email, err)
			continue
		}
		fmt.Printf("%s\t%s\t%s\n", u.Email, u.ID, token)
	}

	log.Println("🎉 Seeding completed!")
}

func seedUser(ctx context.Context, db *gorm.DB, userRepo *repository.UserRepository, i int) (*model.User, error) {
	username := fmt.Sprintf("user%d", i)
	email := fmt.Sprintf("%s@gotalk.local", username)

	var existing model.User
	err := db.WithContext(ctx).Where("email = ?", email).First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user := &model.User{
		ID:               uuid.New(),
		Name:             fmt.Sprintf("User Number %d", i),
		Email:            email,
		Avatar:           fmt.Sprintf("https://api.dicebear.com/7.x/avataaars/svg?seed=%s", username),
		ShowOnlineStatus: i != 5, // user5 hides their presence
	}
	if err := userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	if !user.ShowOnlineStatus {
		// the column default would override a false zero value on insert
		if err := userRepo.UpdateOnlineVisibility(ctx, user.ID, false); err != nil {
			return nil, err
		}
	}
	log.Printf("✅ Created user: %s | Email: %s", username, email)
	return user, nil
}

func seedGroupChat(ctx context.Context, db *gorm.DB, chatService *service.ChatService, members []model.User) {
	var count int64
	db.WithContext(ctx).Model(&model.Conversation{}).Where("name = ?", "General Chat").Count(&count)
	if count > 0 {
		return
	}

	admin := members[0]
	memberIDs := make([]uuid.UUID, 0, len(members)-1)
	for _, m := range members[1:] {
		memberIDs = append(memberIDs, m.ID)
	}

	group, err := chatService.CreateGroup(ctx, admin.ID, model.CreateGroupRequest{
		Name:      "General Chat",
		MemberIDs: memberIDs,
	})
	if err != nil {
		log.Printf("❌ Failed to create group: %v", err)
		return
	}

	if _, err := chatService.SendMessage(ctx, admin.ID, group.ID, model.SendMessageRequest{
		Content: "Welcome everybody to GoTalk! 🚀",
		Type:    model.MessageTypeText,
	}); err != nil {
		log.Printf("❌ Failed to send welcome message: %v", err)
		return
	}

	log.Printf("✅ Created demo group: 'General Chat' with %d members", len(members))
}

func seedMessageRequest(ctx context.Context, chatService *service.ChatService, from, to model.User) {
	resp, err := chatService.SendDirect(ctx, from.ID, to.ID, model.SendMessageRequest{
		Content: "Hi! We haven't met yet 👋",
	})
	if err != nil {
		// Already at the request cap from a previous run
		log.Printf("⚠️  Message request not sent: %v", err)
		return
	}
	log.Printf("✅ Message request %s -> %s (%s)", from.Email, to.Email, resp.Conversation.DirectRequest.Status)
}
