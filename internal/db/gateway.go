package db

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lumen-social/lumen/internal/models"
	"github.com/lumen-social/lumen/internal/toggle"
)

// SQLSTATE and PostgREST codes the gateway recognises
const (
	CodeUniqueViolation  = "23505"
	CodeInsufficientPriv = "42501"
	CodeNoRows           = "PGRST116"
)

// Gateway implements toggle.Gateway on top of GORM
type Gateway struct {
	db *gorm.DB
}

var _ toggle.Gateway = (*Gateway)(nil)

// NewGateway creates a new relationship gateway
func NewGateway(db *gorm.DB) *Gateway {
	return &Gateway{db: db}
}

// ExistsByKey reports whether the composite key has a row, reading at most one
func (g *Gateway) ExistsByKey(ctx context.Context, key toggle.Key) (bool, error) {
	var one int
	res := g.db.WithContext(ctx).
		Table(key.Table).
		Select("1").
		Where(clause.Eq{Column: clause.Column{Name: key.ActorField}, Value: key.ActorValue}).
		Where(clause.Eq{Column: clause.Column{Name: key.TargetField}, Value: key.TargetValue}).
		Limit(1).
		Scan(&one)
	if res.Error != nil {
		return false, Classify("exists", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// Insert creates record in table
func (g *Gateway) Insert(ctx context.Context, table string, record any) error {
	if err := g.db.WithContext(ctx).Table(table).Create(record).Error; err != nil {
		return Classify("insert", err)
	}
	return nil
}

// DeleteByKey removes the row addressed by the composite key. Deleting a
// missing row is not an error.
func (g *Gateway) DeleteByKey(ctx context.Context, key toggle.Key) error {
	err := g.db.WithContext(ctx).Exec(
		"DELETE FROM ? WHERE ? = ? AND ? = ?",
		clause.Table{Name: key.Table},
		clause.Column{Name: key.ActorField}, key.ActorValue,
		clause.Column{Name: key.TargetField}, key.TargetValue,
	).Error
	if err != nil {
		return Classify("delete", err)
	}
	return nil
}

// CountByField counts rows of table where field equals value
func (g *Gateway) CountByField(ctx context.Context, table, field string, value any) (int64, error) {
	var count int64
	err := g.db.WithContext(ctx).
		Table(table).
		Where(clause.Eq{Column: clause.Column{Name: field}, Value: value}).
		Count(&count).Error
	if err != nil {
		return 0, Classify("count", err)
	}
	return count, nil
}

// Classify maps a driver or GORM error onto a typed toggle error
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var te *toggle.Error
	if errors.As(err, &te) {
		return err
	}

	code := ""
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		code = pgErr.Code
	}
	msg := strings.ToLower(err.Error())

	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey),
		code == CodeUniqueViolation,
		strings.Contains(msg, "duplicate"),
		strings.Contains(msg, "unique constraint failed"):
		if code == "" {
			code = CodeUniqueViolation
		}
		return toggle.NewError(toggle.KindConflict, code, op, err)
	case code == CodeInsufficientPriv:
		return toggle.NewError(toggle.KindPermission, code, op, err)
	case errors.Is(err, gorm.ErrRecordNotFound), code == CodeNoRows:
		return toggle.NewError(toggle.KindNotFound, code, op, err)
	case isUnavailable(err):
		return toggle.NewError(toggle.KindUnavailable, code, op, err)
	default:
		return toggle.NewError(toggle.KindOther, code, op, err)
	}
}

func isUnavailable(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// FollowSchema is the follows relationship: follower_id → following_id
var FollowSchema = toggle.Schema{
	Table:       models.FollowTable,
	ActorField:  models.FollowColumnFollower,
	TargetField: models.FollowColumnTarget,
	NewRecord: func(actor string, target any) (any, error) {
		following, ok := target.(string)
		if !ok || following == "" {
			return nil, errors.New("follow target must be a user id")
		}
		return &models.Follow{
			FollowerID:  actor,
			FollowingID: following,
			CreatedAt:   time.Now().UTC(),
		}, nil
	},
}

// LikeSchema is the likes relationship: user_id → post_id
var LikeSchema = toggle.Schema{
	Table:       models.LikeTable,
	ActorField:  models.LikeColumnUser,
	TargetField: models.LikeColumnTarget,
	NewRecord: func(actor string, target any) (any, error) {
		postID, ok := target.(int64)
		if !ok || postID <= 0 {
			return nil, errors.New("like target must be a post id")
		}
		return &models.Like{
			PostID:    postID,
			UserID:    actor,
			CreatedAt: time.Now().UTC(),
		}, nil
	},
}
