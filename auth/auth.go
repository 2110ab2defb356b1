package auth

import (
	"fmt"
	"time"

	"github.com/dgrijalva/jwt-go"
	"go.uber.org/zap"
)

// ContextKey is a defined type to be used in context.Context containing the Principal
type ContextKey string

// Context is key used in context.Context containing the Principal
const Context ContextKey = "authContext"

// Auth verifies bearer tokens and evaluates the access policy
type Auth struct {
	Options
	jwtKey  []byte
	matcher *Matcher
}

// Claims is the struct for jwt token
type Claims struct {
	jwt.StandardClaims
	TenantID string `json:"tid"`
	ActorID  string `json:"aid"`
	Role     Role   `json:"role"`
}

// Options provides initialization parameters for Auth
type Options struct {
	Logger *zap.Logger

	JWTSigningKey string
	TokenTTL      time.Duration

	Policy *Policy
	Rules  Rules
}

func (o *Options) validate() error {
	if o == nil {
		return fmt.Errorf("nil option is invalid")
	}
	if o.Logger == nil {
		return fmt.Errorf("nil Logger is invalid")
	}
	if len(o.JWTSigningKey) < 16 {
		return fmt.Errorf("jwt signing key must be longer than 16 characters")
	}
	if o.TokenTTL <= 0 {
		o.TokenTTL = time.Hour * 12
	}
	if o.Policy == nil {
		o.Policy = DefaultPolicy()
	}
	if len(o.Rules) == 0 {
		return fmt.Errorf("empty Rules is invalid")
	}
	return nil
}

// New will return a new instance of Auth for authentication
func New(option Options) (*Auth, error) {
	if err := option.validate(); err != nil {
		return nil, err
	}

	return &Auth{
		Options: option,
		jwtKey:  []byte(option.JWTSigningKey),
		matcher: option.Rules.Compile(),
	}, nil
}
