package migrations

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

func init() {
	goose.AddMigrationContext(upInit, downInit)
}

type Congregation struct {
	ID           uuid.UUID         `gorm:"type:uuid;primaryKey"`
	Name         string            `gorm:"type:text;not null;uniqueIndex"`
	ContactEmail string            `gorm:"type:text;not null"`
	Status       string            `gorm:"type:text;not null;default:'pending'"`
	Settings     datatypes.JSONMap `gorm:"type:jsonb"`
	ApprovedAt   *time.Time        `gorm:"type:timestamptz"`
	CreatedAt    time.Time         `gorm:"type:timestamptz;not null;default:now();autoCreateTime"`
	UpdatedAt    time.Time         `gorm:"type:timestamptz;not null;default:now();autoUpdateTime"`
}

type TerritoryMap struct {
	ID             uuid.UUID    `gorm:"type:uuid;primaryKey"`
	CongregationID uuid.UUID    `gorm:"type:uuid;not null;index:idx_territory_maps_congregation_number,unique"`
	MapNumber      int          `gorm:"not null;index:idx_territory_maps_congregation_number,unique"`
	Description    string       `gorm:"type:text"`
	CreatedAt      time.Time    `gorm:"type:timestamptz;not null;default:now();autoCreateTime"`
	Congregation   Congregation `gorm:"foreignKey:CongregationID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

type Session struct {
	ID             uuid.UUID    `gorm:"type:uuid;primaryKey"`
	Code           string       `gorm:"type:text;not null;index"`
	CongregationID uuid.UUID    `gorm:"type:uuid;not null;index"`
	CreatedBy      uuid.UUID    `gorm:"type:uuid;not null"`
	MapNumber      *int         `gorm:""`
	IsActive       bool         `gorm:"not null;default:true;index"`
	CreatedAt      time.Time    `gorm:"type:timestamptz;not null;default:now();autoCreateTime"`
	ExpiresAt      time.Time    `gorm:"type:timestamptz;not null;index"`
	Congregation   Congregation `gorm:"foreignKey:CongregationID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

type SessionParticipant struct {
	SessionID uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	JoinedAt  time.Time `gorm:"type:timestamptz;not null;default:now()"`
	Session   Session   `gorm:"foreignKey:SessionID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

type Address struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	SessionID   uuid.UUID `gorm:"type:uuid;not null;index"`
	BlockNumber string    `gorm:"type:text"`
	Address     string    `gorm:"type:text;not null"`
	Latitude    *float64  `gorm:"type:double precision"`
	Longitude   *float64  `gorm:"type:double precision"`
	CreatedBy   uuid.UUID `gorm:"type:uuid;not null"`
	CreatedAt   time.Time `gorm:"type:timestamptz;not null;default:now();autoCreateTime"`
	UpdatedAt   time.Time `gorm:"type:timestamptz;not null;default:now();autoUpdateTime"`
	Session     Session   `gorm:"foreignKey:SessionID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func upInit(ctx context.Context, tx *sql.Tx) error {
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: tx, PreferSimpleProtocol: true}), &gorm.Config{
		NamingStrategy: schema.NamingStrategy{SingularTable: false},
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return err
	}

	if err := gormDB.WithContext(ctx).AutoMigrate(
		&Congregation{},
		&TerritoryMap{},
		&Session{},
		&SessionParticipant{},
		&Address{},
	); err != nil {
		return err
	}

	m := gormDB.WithContext(ctx).Migrator()
	if err := m.CreateConstraint(&TerritoryMap{}, "Congregation"); err != nil {
		return err
	}
	if err := m.CreateConstraint(&Session{}, "Congregation"); err != nil {
		return err
	}
	if err := m.CreateConstraint(&SessionParticipant{}, "Session"); err != nil {
		return err
	}
	if err := m.CreateConstraint(&Address{}, "Session"); err != nil {
		return err
	}

	return nil
}

func downInit(ctx context.Context, tx *sql.Tx) error {
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: tx, PreferSimpleProtocol: true}), &gorm.Config{
		NamingStrategy: schema.NamingStrategy{SingularTable: false},
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return err
	}

	if err := gormDB.WithContext(ctx).Migrator().DropTable(
		&Address{},
		&SessionParticipant{},
		&Session{},
		&TerritoryMap{},
		&Congregation{},
	); err != nil {
		return err
	}

	return nil
}
