package auth

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fathima-sithara/sync-service/internal/config"
)

type Validator struct {
	alg    string
	pub    *rsa.PublicKey
	secret []byte
}

func NewValidator(cfg config.JWT) (*Validator, error) {
	switch cfg.Alg {
	case "RS256":
		pub, err := loadPublicKey(cfg.PublicKeyPath)
		if err != nil {
			return nil, err
		}
		return &Validator{alg: cfg.Alg, pub: pub}, nil
	case "HS256":
		if cfg.HSSecret == "" {
			return nil, errors.New("hs_secret required")
		}
		return &Validator{alg: cfg.Alg, secret: []byte(cfg.HSSecret)}, nil
	default:
		return nil, fmt.Errorf("unsupported alg %q", cfg.Alg)
	}
}

func loadPublicKey(path string) (*rsa.PublicKey, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(b)
	if block == nil {
		return nil, errors.New("failed to decode public key")
	}
	pubIfc, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	pub, ok := pubIfc.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("not rsa public key")
	}
	return pub, nil
}

func (v *Validator) Validate(tokenStr string) (string, error) {
	tok, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if v.alg == "HS256" {
			return v.secret, nil
		}
		return v.pub, nil
	}, jwt.WithValidMethods([]string{v.alg}))
	if err != nil {
		return "", err
	}
	if claims, ok := tok.Claims.(jwt.MapClaims); ok && tok.Valid {
		if sub, ok := claims["sub"].(string); ok {
			return sub, nil
		}
		if userID, ok := claims["user_id"].(string); ok {
			return userID, nil
		}
	}
	return "", errors.New("invalid token")
}
