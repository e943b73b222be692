package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"liveshop/internal/domain/model"
	"liveshop/internal/repository"
)

// handlerからusecaseに渡す入力
type LoginInput struct {
	Email    string
	Password string
}

// handlerがJSONにして返す
type LoginOutput struct {
	MemberID    int64      `json:"member_id"`
	Email       string     `json:"email"`
	Role        model.Role `json:"role"`
	AccessToken string     `json:"access_token"`
	ExpiresIn   int        `json:"expires_in"`
}

// メールまたはパスワードが違う
var ErrInvalidCredentials = errors.New("invalid credentials")

// 停止済み会員
var ErrMemberInactive = errors.New("member is inactive")

// JWTを発行する約束
type AccessTokenIssuer interface {
	Issue(memberID int64, role model.Role, now time.Time) (token string, expiresAt time.Time, err error)
}

type LoginUsecase struct {
	memberRepo repository.MemberRepository
	verifier   PasswordVerifier
	issuer     AccessTokenIssuer
}

func NewLoginUsecase(memberRepo repository.MemberRepository, verifier PasswordVerifier, issuer AccessTokenIssuer) *LoginUsecase {
	return &LoginUsecase{
		memberRepo: memberRepo,
		verifier:   verifier,
		issuer:     issuer,
	}
}

// ログイン処理を実行する
func (u *LoginUsecase) Execute(ctx context.Context, in LoginInput) (LoginOutput, error) {
	var out LoginOutput

	email := strings.TrimSpace(strings.ToLower(in.Email))

	member, err := u.memberRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// 存在の有無は漏らさない
			return out, ErrInvalidCredentials
		}
		return out, err
	}

	if !member.IsActive {
		return out, ErrMemberInactive
	}

	if ok := u.verifier.Verify(in.Password, member.PasswordHash); !ok {
		return out, ErrInvalidCredentials
	}

	now := time.Now()
	token, expiresAt, err := u.issuer.Issue(member.ID, member.Role, now)
	if err != nil {
		return out, err
	}

	out.MemberID = member.ID
	out.Email = member.Email
	out.Role = member.Role
	out.AccessToken = token
	out.ExpiresIn = int(expiresAt.Sub(now).Seconds())
	return out, nil
}
