package enrollments

import (
	"github.com/dmitrijs2005/voicepay/internal/dbx"
)

var sqliteQueries = queries{
	upsert: `INSERT INTO voice_enrollments
		 (user_id, voice_embedding, secret_numbers, embedding_method, file_hash, created_at, updated_at, is_active)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 1)
		 ON CONFLICT (user_id) DO UPDATE SET
		 voice_embedding = excluded.voice_embedding,
		 secret_numbers = excluded.secret_numbers,
		 embedding_method = excluded.embedding_method,
		 file_hash = excluded.file_hash,
		 updated_at = excluded.updated_at,
		 is_active = 1
		 RETURNING created_at`,

	get: `SELECT ` + selectColumns + ` FROM voice_enrollments
		 WHERE user_id = ?`,

	listAll: `SELECT ` + selectColumns + ` FROM voice_enrollments
		 ORDER BY created_at DESC, user_id`,

	listActive: `SELECT ` + selectColumns + ` FROM voice_enrollments
		 WHERE is_active = 1
		 ORDER BY created_at DESC, user_id`,

	setActive: `UPDATE voice_enrollments SET is_active = ?, updated_at = ?
		 WHERE user_id = ? AND is_active <> ?`,

	delete: `DELETE FROM voice_enrollments WHERE user_id = ?`,

	counts: `SELECT COUNT(*), COALESCE(SUM(CASE WHEN is_active = 1 THEN 1 ELSE 0 END), 0)
		 FROM voice_enrollments`,

	storageSize: `SELECT page_count * page_size FROM pragma_page_count(), pragma_page_size()`,
}

type SQLiteRepository struct {
	sqlRepository
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{sqlRepository{
		db:       db,
		q:        sqliteQueries,
		bindTime: sqliteTime,
		setActiveArgs: func(userID string, active bool, at any) []any {
			flag := 0
			if active {
				flag = 1
			}
			return []any{flag, at, userID, flag}
		},
	}}
}
