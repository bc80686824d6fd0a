// Package auth issues and verifies seat tokens: HS256 JWTs binding a player
// id to a seat of one match.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken is returned for tokens that fail signature, expiry or
// claim checks.
var ErrInvalidToken = errors.New("invalid seat token")

// SeatClaims are the claims of a seat token. The subject is the player id.
type SeatClaims struct {
	GameID string `json:"gid"`
	Seat   uint8  `json:"seat"`
	jwt.RegisteredClaims
}

// Seat is a verified seat token.
type Seat struct {
	GameID   uuid.UUID
	PlayerID uuid.UUID
	Seat     uint8
}

// IssueSeatToken signs a token for playerID at seat of gameID, valid for ttl.
func IssueSeatToken(secret []byte, gameID, playerID uuid.UUID, seat uint8, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := SeatClaims{
		GameID: gameID.String(),
		Seat:   seat,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   playerID.String(),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ParseSeatToken verifies token and returns the seat it grants.
func ParseSeatToken(secret []byte, token string) (Seat, error) {
	var claims SeatClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return Seat{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	gameID, err := uuid.Parse(claims.GameID)
	if err != nil {
		return Seat{}, fmt.Errorf("%w: game id: %v", ErrInvalidToken, err)
	}
	playerID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Seat{}, fmt.Errorf("%w: subject: %v", ErrInvalidToken, err)
	}
	return Seat{GameID: gameID, PlayerID: playerID, Seat: claims.Seat}, nil
}
