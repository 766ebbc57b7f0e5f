package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/mpue/cflux-sub004/internal/model"
)

func TestSnapshotRepo_DumpAll_IncludesDeleted(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewSnapshotRepo(db)

	liveID := uuid.Must(uuid.NewV4())
	deadID := uuid.Must(uuid.NewV4())
	now := time.Now()
	deleted := now.Add(-time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM document_nodes ORDER BY created_at`).
		WillReturnRows(pgxmock.NewRows(nodeColNames).
			AddRow(liveID, "Live", model.KindFolder, "", (*uuid.UUID)(nil), 0, "a", "a", now, now, (*time.Time)(nil)).
			AddRow(deadID, "Gone", model.KindDocument, "x", (*uuid.UUID)(nil), 1, "a", "a", now, now, &deleted))
	mock.ExpectQuery(`SELECT .+ FROM document_versions ORDER BY node_id, version`).
		WillReturnRows(pgxmock.NewRows(versionColNames).
			AddRow(uuid.Must(uuid.NewV4()), deadID, "x", int64(1), "a", now))
	mock.ExpectQuery(`SELECT id, node_id, group_id, level, created_at FROM document_node_group_permissions`).
		WillReturnRows(pgxmock.NewRows([]string{"id", "node_id", "group_id", "level", "created_at"}))
	mock.ExpectCommit()

	nodes, versions, grants, err := r.DumpAll(context.Background())
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	require.NotNil(t, nodes[1].DeletedAt)
	require.Len(t, versions, 1)
	require.Empty(t, grants)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshotRepo_CountNodes(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewSnapshotRepo(db)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM document_nodes`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(4)))

	n, err := r.CountNodes(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(4), n)
}

func TestSnapshotRepo_InsertAll_PreservesRows(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewSnapshotRepo(db)

	nodeID := uuid.Must(uuid.NewV4())
	verID := uuid.Must(uuid.NewV4())
	grantID := uuid.Must(uuid.NewV4())
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	nodes := []model.Node{{ID: nodeID, Title: "Doc", Kind: model.KindDocument, Content: "x",
		SortOrder: 0, CreatedBy: "a", UpdatedBy: "a", CreatedAt: created, UpdatedAt: created}}
	versions := []model.Version{{ID: verID, NodeID: nodeID, Content: "x", Number: 1, CreatedBy: "a", CreatedAt: created}}
	grants := []model.PermissionGrant{{ID: grantID, NodeID: nodeID, GroupID: "g", Level: model.LevelRead, CreatedAt: created}}

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO document_nodes`).
		WithArgs(nodeID, "Doc", model.KindDocument, "x", pgxmock.AnyArg(), 0, "a", "a",
			created, created, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO document_versions`).
		WithArgs(verID, nodeID, "x", int64(1), "a", created).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO document_node_group_permissions`).
		WithArgs(grantID, nodeID, "g", model.LevelRead, created).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	require.NoError(t, r.InsertAll(context.Background(), nodes, versions, grants))
	require.NoError(t, mock.ExpectationsWereMet())
}
