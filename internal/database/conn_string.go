package database

import (
	"cmp"
	"net"
	"net/url"
	"strconv"

	"github.com/rickgao/homepage/internal/config"
)

// ApplicationName is reported to the server so homepage sessions show up in pg_stat_activity.
const ApplicationName = "homepage"

// BuildConnString builds a PostgreSQL URL from config. Credentials are escaped.
func BuildConnString(cfg config.DBConfig) string {
	q := url.Values{}
	q.Set("sslmode", cmp.Or(cfg.SSLMode, config.DefaultDBSSLMode))
	q.Set("application_name", ApplicationName)

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:     "/" + cfg.Name,
		RawQuery: q.Encode(),
	}
	return u.String()
}
