package auth

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"liveshop/internal/domain/model"
	"liveshop/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

// 会員登録の入力
type RegisterMemberInput struct {
	Email    string
	Password string
}

// 会員登録の出力（パスワードハッシュは返さない）
type RegisterMemberOutput struct {
	MemberID int64      `json:"member_id"`
	Email    string     `json:"email"`
	Role     model.Role `json:"role"`
}

var (
	// 入力が不正
	ErrInvalidEmailFormat = errors.New("invalid email format")
	ErrPasswordTooShort   = errors.New("password too short")

	// 競合
	ErrEmailAlreadyExists = errors.New("email already exists")
)

// 平文パスワードからハッシュへ。
type PasswordHasher interface {
	Hash(plain string) (string, error)
}

// 入力パスワードと保存したハッシュを比べる約束
type PasswordVerifier interface {
	Verify(plain string, hashed string) bool
}

type RegisterMemberUsecase struct {
	memberRepo repository.MemberRepository
	hasher     PasswordHasher
}

// DI
func NewRegisterMemberUsecase(memberRepo repository.MemberRepository, hasher PasswordHasher) *RegisterMemberUsecase {
	return &RegisterMemberUsecase{
		memberRepo: memberRepo,
		hasher:     hasher,
	}
}

// 会員登録実行
func (u *RegisterMemberUsecase) Execute(ctx context.Context, in RegisterMemberInput) (RegisterMemberOutput, error) {
	var out RegisterMemberOutput

	email := strings.TrimSpace(strings.ToLower(in.Email))
	if !isValidEmailFormat(email) {
		return out, ErrInvalidEmailFormat
	}

	// password の長さチェック（最小8文字）
	if len(in.Password) < 8 {
		return out, ErrPasswordTooShort
	}

	// email重複チェック（unique制約が最終ガード）
	_, err := u.memberRepo.FindByEmail(ctx, email)
	if err == nil {
		return out, ErrEmailAlreadyExists
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return out, err
	}

	hashed, err := u.hasher.Hash(in.Password)
	if err != nil {
		return out, err
	}

	member, err := u.memberRepo.Create(ctx, model.Member{
		Email:        email,
		PasswordHash: hashed,
		Role:         model.RoleUser,
		IsActive:     true,
	})
	if errors.Is(err, repository.ErrDuplicate) {
		return out, ErrEmailAlreadyExists
	}
	if err != nil {
		return out, err
	}

	out.MemberID = member.ID
	out.Email = member.Email
	out.Role = member.Role
	return out, nil
}

// メールチェック
func isValidEmailFormat(email string) bool {
	if email == "" {
		return false
	}
	_, err := mail.ParseAddress(email)
	return err == nil
}

// bcryptハッシュ化
type BcryptPasswordHasher struct {
	cost int
}

func NewBcryptPasswordHasher(cost int) *BcryptPasswordHasher {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	return &BcryptPasswordHasher{cost}
}

func (h *BcryptPasswordHasher) Hash(plain string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

// bcryptハッシュと平文を比較
type BcryptPasswordVerifier struct{}

func NewBcryptPasswordVerifier() *BcryptPasswordVerifier {
	return &BcryptPasswordVerifier{}
}

func (v *BcryptPasswordVerifier) Verify(plain string, hashed string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
	return err == nil
}
