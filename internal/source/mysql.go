package source

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"missiontl/internal/canvas"
	"missiontl/internal/config"
	appLog "missiontl/internal/log"
	"missiontl/internal/model"
	"missiontl/internal/resource"
)

// Schema of the mysql store:
//
//	CREATE TABLE intervals (
//	  id BIGINT PRIMARY KEY, band VARCHAR(64) NOT NULL, label VARCHAR(255),
//	  start_at BIGINT NOT NULL, end_at BIGINT NOT NULL,
//	  start_value DOUBLE, end_value DOUBLE, state VARCHAR(64), color CHAR(7),
//	  INDEX (band, start_at)
//	);
//	CREATE TABLE reservations (
//	  id BIGINT AUTO_INCREMENT PRIMARY KEY, band VARCHAR(64) NOT NULL,
//	  start_at BIGINT NOT NULL, end_at BIGINT NOT NULL, value DOUBLE NOT NULL,
//	  INDEX (band, start_at)
//	);
const (
	intervalsQuery = `SELECT id, COALESCE(label, ''), start_at, end_at,
	COALESCE(start_value, 0), COALESCE(end_value, 0), COALESCE(state, ''), COALESCE(color, '')
	FROM intervals WHERE band = ? AND start_at < ? AND end_at > ? ORDER BY start_at, end_at`

	reservationsQuery = `SELECT start_at, end_at, value
	FROM reservations WHERE band = ? AND start_at < ? AND end_at > ?`
)

// MySQL serves bands from the intervals and reservations tables. A resource
// band with reservations gets them folded into its profile.
type MySQL struct {
	db *sql.DB
}

// OpenMySQL connects and verifies the connection. The DSN should carry
// parseTime=true&loc=UTC.
func OpenMySQL(dsn string) (*MySQL, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return &MySQL{db: db}, nil
}

func (m *MySQL) Close() error { return m.db.Close() }

func (m *MySQL) Intervals(ctx context.Context, bc config.BandConfig, w Window) ([]*model.DrawableInterval, error) {
	out, err := m.intervals(ctx, bc.ID, w)
	if err != nil {
		return nil, err
	}
	if bc.Kind != "resource" {
		return out, nil
	}
	rs, err := m.reservations(ctx, bc.ID, w)
	if err != nil {
		return nil, err
	}
	if len(rs) > 0 {
		out = append(out, Fold(bc.Resource, w, rs)...)
	}
	return out, nil
}

func (m *MySQL) intervals(ctx context.Context, band string, w Window) ([]*model.DrawableInterval, error) {
	rows, err := m.db.QueryContext(ctx, intervalsQuery, band, w.End, w.Start)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.DrawableInterval
	for rows.Next() {
		iv := model.New(0, 0, 0, "")
		var color string
		if err := rows.Scan(&iv.ID, &iv.Label, &iv.Start, &iv.End, &iv.StartValue, &iv.EndValue, &iv.State, &color); err != nil {
			return nil, err
		}
		iv.Source = "mysql"
		if color != "" {
			if c, err := canvas.ParseRGB(color); err == nil {
				iv.Color = &c
			} else {
				appLog.Debug("mysql interval color ignored", "band", band, "id", iv.ID, "color", color)
			}
		}
		out = append(out, iv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (m *MySQL) reservations(ctx context.Context, band string, w Window) ([]resource.Reservation, error) {
	rows, err := m.db.QueryContext(ctx, reservationsQuery, band, w.End, w.Start)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []resource.Reservation
	for rows.Next() {
		var r resource.Reservation
		if err := rows.Scan(&r.Start, &r.End, &r.Value); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
