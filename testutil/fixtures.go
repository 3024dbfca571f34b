package testutil

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"
)

// CreateFixture creates a fixture in the database.
func CreateFixture(t *testing.T, db *gorm.DB, model interface{}) {
	t.Helper()

	if err := db.Create(model).Error; err != nil {
		t.Fatalf("failed to create fixture: %v", err)
	}
}

// CreateFixtures creates multiple fixtures in the database.
func CreateFixtures(t *testing.T, db *gorm.DB, models ...interface{}) {
	t.Helper()

	for _, model := range models {
		CreateFixture(t, db, model)
	}
}

// AccessToken returns a backend-style HS256 access token expiring at exp.
func AccessToken(t *testing.T, userID int64, exp time.Time) string {
	t.Helper()
	return signedToken(t, userID, "access", exp)
}

// RefreshToken returns a backend-style HS256 refresh token expiring at exp.
func RefreshToken(t *testing.T, userID int64, exp time.Time) string {
	t.Helper()
	return signedToken(t, userID, "refresh", exp)
}

func signedToken(t *testing.T, userID int64, typ string, exp time.Time) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  userID,
		"type": typ,
		"exp":  exp.Unix(),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}
