package main

import (
	"time"

	"liveshop/internal/config"
	"liveshop/internal/domain/model"
	"liveshop/internal/handler"
	"liveshop/internal/infra/db"
	"liveshop/internal/infra/gateway"
	infraRepo "liveshop/internal/infra/repository"
	"liveshop/internal/server"
	"liveshop/internal/usecase"
	auth "liveshop/internal/usecase/auth_usecase"
	"liveshop/pkg/metrics"

	"github.com/golang-jwt/jwt/v5"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type jwtIssuer struct {
	secret    []byte
	accessTTL time.Duration
}

func newJWTIssuer(secret string) *jwtIssuer {
	return &jwtIssuer{
		secret:    []byte(secret),
		accessTTL: 15 * time.Minute,
	}
}

func (i *jwtIssuer) Issue(memberID int64, role model.Role, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(i.accessTTL)

	claims := jwt.MapClaims{
		"sub":  memberID,
		"role": string(role),
		"iat":  now.Unix(),
		"exp":  expiresAt.Unix(),
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}

	return signed, expiresAt, nil
}

func main() {
	// .envはあれば読む（本番は環境変数のみ）
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	var log *zap.Logger
	if cfg.GoEnv == "prod" {
		log, err = zap.NewProduction()
	} else {
		log, err = zap.NewDevelopment()
	}
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	gormDB, err := db.Connect(cfg)
	if err != nil {
		log.Fatal("db connect failed", zap.Error(err))
	}
	if err := gormDB.AutoMigrate(
		&model.Member{},
		&model.Seller{},
		&model.Address{},
		&model.Product{},
		&model.LiveSaleProduct{},
		&model.Order{},
		&model.OrderItem{},
		&model.Payment{},
		&model.Refund{},
	); err != nil {
		log.Fatal("db migrate failed", zap.Error(err))
	}

	// Repository（GORM実装）生成
	txManager := infraRepo.NewTxManagerGorm(gormDB)
	orderRepo := infraRepo.NewOrderGormRepository(gormDB)
	orderItemRepo := infraRepo.NewOrderItemGormRepository(gormDB)
	memberRepo := infraRepo.NewMemberGormRepository(gormDB)
	sellerRepo := infraRepo.NewSellerGormRepository(gormDB)
	addressRepo := infraRepo.NewAddressGormRepository(gormDB)
	paymentRepo := infraRepo.NewPaymentGormRepository(gormDB)
	salesAggregator := infraRepo.NewLiveSalesAggregator(gormDB)

	// 決済ゲートウェイ
	toss := gateway.NewTossClient(cfg.TossBaseURL, cfg.TossSecretKey, cfg.GatewayTimeout, log)

	// bcrypt（会員登録：Hash / ログイン：Verify）
	hasher := auth.NewBcryptPasswordHasher(12)
	verifier := auth.NewBcryptPasswordVerifier()

	// JWT issuer
	issuer := newJWTIssuer(cfg.JWTSecret)

	// Usecase生成
	registerUC := auth.NewRegisterMemberUsecase(memberRepo, hasher)
	loginUC := auth.NewLoginUsecase(memberRepo, verifier, issuer)
	orderUC := usecase.NewOrderUsecase(
		txManager, orderRepo, orderItemRepo, memberRepo,
		addressRepo, paymentRepo, toss, salesAggregator, log,
	)
	paymentUC := usecase.NewPaymentUsecase(txManager, paymentRepo, toss, log)
	sellerOrderUC := usecase.NewSellerOrderUsecase(orderRepo, orderItemRepo, sellerRepo)

	// Handler生成
	handlers := server.Handlers{
		Auth:        handler.NewAuthHandler(registerUC, loginUC),
		Order:       handler.NewOrderHandler(orderUC),
		Payment:     handler.NewPaymentHandler(paymentUC),
		SellerOrder: handler.NewSellerOrderHandler(sellerOrderUC),
	}

	m := metrics.NewServerMetrics("api")

	log.Info("server starting", zap.String("port", cfg.Port), zap.String("env", cfg.GoEnv))
	if err := server.Start(cfg, handlers, m); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}
