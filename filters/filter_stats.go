package filters

import (
	"unicode/utf8"

	"github.com/getkayan/authproc/config"
	"github.com/getkayan/authproc/domain"
	"github.com/getkayan/authproc/logger"
	"github.com/getkayan/authproc/stats"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// KindLoginStats identifies the login accounting filter in pipeline
// configuration.
const KindLoginStats = "login_stats"

// Configuration option keys for the login accounting filter.
const (
	OptIdPEntityIDAttr = "idpEntityIdAttributeName"
	OptIdPNameAttr     = "idpNameAttributeName"
	OptStatsTable      = "statisticsTableName"
	OptIdPMapTable     = "identityProvidersMapTableName"
	OptSPMapTable      = "serviceProvidersMapTableName"
)

// RecordOutcome distinguishes "skipped, precondition not met" from
// "attempted" recording results so callers and tests can tell them apart.
type RecordOutcome int

const (
	// OutcomeSkipped means a precondition was missing and nothing was
	// written.
	OutcomeSkipped RecordOutcome = iota
	// OutcomeRecorded means the login was stored.
	OutcomeRecorded
	// OutcomeFailed means recording was attempted but the store reported
	// an error.
	OutcomeFailed
)

// LoginStats records one counter row per (day, identity provider, service
// provider, user) login. It is pure instrumentation: Process never stops
// the pipeline and store failures never surface to the end user.
type LoginStats struct {
	name          string
	recorder      stats.Recorder
	assertions    AssertionSource
	idpEntityAttr string
	idpNameAttr   string
}

// NewLoginStatsFilter is the Factory for KindLoginStats. Unless a
// Recorder override is supplied it builds a database-backed store using
// the configured table names.
func NewLoginStatsFilter(cfg config.FilterConfig, deps Deps) (Filter, error) {
	entityAttr, err := cfg.RequiredOption(OptIdPEntityIDAttr)
	if err != nil {
		return nil, err
	}
	nameAttr, err := cfg.RequiredOption(OptIdPNameAttr)
	if err != nil {
		return nil, err
	}

	recorder := deps.Recorder
	if recorder == nil {
		tables := stats.DefaultTableNames()
		if t := cfg.Option(OptStatsTable); t != "" {
			tables.Stats = t
		}
		if t := cfg.Option(OptIdPMapTable); t != "" {
			tables.IdPMap = t
		}
		if t := cfg.Option(OptSPMapTable); t != "" {
			tables.SPMap = t
		}
		store := stats.NewStore(deps.DB, tables)
		if err := store.AutoMigrate(); err != nil {
			return nil, err
		}
		recorder = store
	}

	return &LoginStats{
		name:          cfg.Name,
		recorder:      recorder,
		assertions:    deps.Assertions,
		idpEntityAttr: entityAttr,
		idpNameAttr:   nameAttr,
	}, nil
}

func (f *LoginStats) Name() string { return f.name }

func (f *LoginStats) Process(c echo.Context, params *domain.FilterContext) (bool, error) {
	f.record(c, params)
	return true, nil
}

// record applies the preconditions and, when all hold, stores the login.
func (f *LoginStats) record(c echo.Context, params *domain.FilterContext) RecordOutcome {
	if !params.HasClient() {
		logger.Log.Debug("skip execution: no client provided", zap.String("filter", f.name))
		return OutcomeSkipped
	}
	client := params.Client()

	req := c.Request()
	idpEntityID := recodeLatin1(f.assertions.AttributeValue(req, f.idpEntityAttr))
	idpName := recodeLatin1(f.assertions.AttributeValue(req, f.idpNameAttr))
	if idpEntityID == "" || idpName == "" {
		logger.Log.Debug("skip execution: no source IdP provided", zap.String("filter", f.name))
		return OutcomeSkipped
	}

	if !params.HasUser() {
		logger.Log.Debug("skip execution: no user ID available", zap.String("filter", f.name))
		return OutcomeSkipped
	}
	userID := params.User().ID

	err := f.recorder.Record(req.Context(), stats.Event{
		IdPEntityID:  idpEntityID,
		IdPName:      idpName,
		SPIdentifier: client.ID,
		SPName:       client.Name,
		UserID:       userID,
	})
	if err != nil {
		logger.Log.Warn("failed to record login",
			zap.String("filter", f.name),
			zap.Error(err),
		)
		return OutcomeFailed
	}

	logger.Log.Info("user login",
		zap.String("user_id", userID),
		zap.String("service", client.ID),
		zap.String("service_name", client.Name),
		zap.String("idp", idpEntityID),
	)
	return OutcomeRecorded
}

// recodeLatin1 corrects attribute values whose UTF-8 bytes were decoded
// as ISO-8859-1 by the upstream transport: each rune below 0x100 is one
// original byte. Values that are not Latin-1-transported, or that do not
// decode to valid UTF-8, are returned unchanged.
func recodeLatin1(s string) string {
	if s == "" {
		return ""
	}
	buf := make([]byte, 0, len(s))
	for _, r := range s {
		if r > 0xFF {
			return s
		}
		buf = append(buf, byte(r))
	}
	if !utf8.Valid(buf) {
		return s
	}
	return string(buf)
}
