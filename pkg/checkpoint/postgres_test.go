package checkpoint_test

import (
	"context"
	"database/sql"
	"regexp"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/go-logr/logr"

	"github.com/corvid-robotics/robobrain/pkg/checkpoint"
	"github.com/corvid-robotics/robobrain/pkg/state"
)

var _ = Describe("PostgresStore", func() {
	var (
		ctx     context.Context
		mockDB  *sql.DB
		mock    sqlmock.Sqlmock
		store   *checkpoint.PostgresStore
	)

	BeforeEach(func() {
		var err error
		mockDB, mock, err = sqlmock.New()
		Expect(err).NotTo(HaveOccurred())

		db := sqlx.NewDb(mockDB, "sqlmock")
		store = checkpoint.NewPostgresStore(db, logr.Discard())
		ctx = context.Background()
	})

	AfterEach(func() {
		mockDB.Close()
	})

	It("inserts a checkpoint row on Save", func() {
		s := state.New("sess-1")

		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO checkpoints")).
			WillReturnResult(sqlmock.NewResult(1, 1))

		id, err := store.Save(ctx, "sess-1", s, "world_update", map[string]interface{}{"k": "v"})
		Expect(err).NotTo(HaveOccurred())
		Expect(id).NotTo(BeEmpty())
		Expect(mock.ExpectationsWereMet()).To(Succeed())
	})

	It("wraps an insert error as a store error", func() {
		s := state.New("sess-1")

		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO checkpoints")).
			WillReturnError(sql.ErrConnDone)

		_, err := store.Save(ctx, "sess-1", s, "world_update", nil)
		Expect(err).To(HaveOccurred())
	})

	It("loads the latest checkpoint for a session", func() {
		s := state.New("sess-1")
		snapshotJSON, err := state.Marshal(s)
		Expect(err).NotTo(HaveOccurred())

		rows := sqlmock.NewRows([]string{"id", "session_id", "stage", "snapshot_json", "metadata_json", "created_at"}).
			AddRow("cp-1", "sess-1", "decide", snapshotJSON, nil, time.Now())

		mock.ExpectQuery(regexp.QuoteMeta("SELECT id, session_id, stage, snapshot_json, metadata_json, created_at")).
			WithArgs("sess-1").
			WillReturnRows(rows)

		cp, err := store.Load(ctx, "sess-1", "")
		Expect(err).NotTo(HaveOccurred())
		Expect(cp.Stage).To(Equal("decide"))
		Expect(cp.Snapshot.SessionID).To(Equal("sess-1"))
	})

	It("reports not-found when no rows match", func() {
		mock.ExpectQuery(regexp.QuoteMeta("SELECT id, session_id, stage, snapshot_json, metadata_json, created_at")).
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		_, err := store.Load(ctx, "missing", "")
		Expect(err).To(HaveOccurred())
	})

	It("marks an effect id idempotently via ON CONFLICT DO NOTHING", func() {
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO side_effects")).
			WithArgs("sess-1", "sess-1:0:0").
			WillReturnResult(sqlmock.NewResult(0, 0))

		Expect(store.MarkEffect(ctx, "sess-1", "sess-1:0:0")).To(Succeed())
		Expect(mock.ExpectationsWereMet()).To(Succeed())
	})

	It("reports whether an effect id was already executed", func() {
		rows := sqlmock.NewRows([]string{"exists"}).AddRow(true)
		mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
			WithArgs("sess-1", "sess-1:0:0").
			WillReturnRows(rows)

		executed, err := store.EffectExecuted(ctx, "sess-1", "sess-1:0:0")
		Expect(err).NotTo(HaveOccurred())
		Expect(executed).To(BeTrue())
	})

	It("appends a chat message", func() {
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO chat_history")).
			WillReturnResult(sqlmock.NewResult(1, 1))

		Expect(store.AppendMessage(ctx, "sess-1", "user", "go to kitchen")).To(Succeed())
	})

	It("loads chat history most-recent first", func() {
		now := time.Now()
		rows := sqlmock.NewRows([]string{"id", "session_id", "role", "content", "created_at"}).
			AddRow("m1", "sess-1", "assistant", "ok", now).
			AddRow("m2", "sess-1", "user", "go to kitchen", now.Add(-time.Minute))

		mock.ExpectQuery(regexp.QuoteMeta("SELECT id, session_id, role, content, created_at")).
			WithArgs("sess-1", 10).
			WillReturnRows(rows)

		history, err := store.LoadHistory(ctx, "sess-1", 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(history).To(HaveLen(2))
		Expect(history[0].Content).To(Equal("ok"))
	})
})
