package enrollments

import (
	"github.com/dmitrijs2005/voicepay/internal/dbx"
)

var postgresQueries = queries{
	upsert: `INSERT INTO voice_enrollments
		 (user_id, voice_embedding, secret_numbers, embedding_method, file_hash, created_at, updated_at, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE)
		 ON CONFLICT (user_id) DO UPDATE SET
		 voice_embedding = EXCLUDED.voice_embedding,
		 secret_numbers = EXCLUDED.secret_numbers,
		 embedding_method = EXCLUDED.embedding_method,
		 file_hash = EXCLUDED.file_hash,
		 updated_at = EXCLUDED.updated_at,
		 is_active = TRUE
		 RETURNING created_at`,

	get: `SELECT ` + selectColumns + ` FROM voice_enrollments
		 WHERE user_id = $1`,

	listAll: `SELECT ` + selectColumns + ` FROM voice_enrollments
		 ORDER BY created_at DESC, user_id`,

	listActive: `SELECT ` + selectColumns + ` FROM voice_enrollments
		 WHERE is_active = TRUE
		 ORDER BY created_at DESC, user_id`,

	setActive: `UPDATE voice_enrollments SET is_active = $1, updated_at = $2
		 WHERE user_id = $3 AND is_active <> $1`,

	delete: `DELETE FROM voice_enrollments WHERE user_id = $1`,

	counts: `SELECT COUNT(*), COALESCE(SUM(CASE WHEN is_active THEN 1 ELSE 0 END), 0)
		 FROM voice_enrollments`,

	storageSize: `SELECT pg_total_relation_size('voice_enrollments')`,
}

type PostgresRepository struct {
	sqlRepository
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{sqlRepository{
		db:       db,
		q:        postgresQueries,
		bindTime: nativeTime,
		setActiveArgs: func(userID string, active bool, at any) []any {
			return []any{active, at, userID}
		},
	}}
}
