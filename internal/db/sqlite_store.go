package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/kurataraku/survey-app/internal/api"
	"github.com/kurataraku/survey-app/internal/services"
)

// SQLiteStore is the durable api.Store. Alias uniqueness is enforced by the
// unique index on school_aliases.alias_normalized, which makes it the
// authoritative check under concurrent writers.
type SQLiteStore struct {
	db *sql.DB
}

var _ api.Store = (*SQLiteStore)(nil)

func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, errors.New("nil db")
	}
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("apply sqlite pragma %q: %w", stmt, err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

func NewStore(db *sql.DB) (api.Store, error) {
	return NewSQLiteStore(db)
}

func (s *SQLiteStore) logErr(prefix string, err error) {
	if err != nil {
		log.Printf("sqlite store: %s: %v", prefix, err)
	}
}

func toNullString(v string) sql.NullString {
	if strings.TrimSpace(v) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: v, Valid: true}
}

func fmtTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(v string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return t
}

func encodeStrings(list []string) (sql.NullString, error) {
	if len(list) == 0 {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(list)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func decodeStrings(ns sql.NullString) []string {
	if !ns.Valid || strings.TrimSpace(ns.String) == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(ns.String), &out); err != nil {
		log.Printf("sqlite store: decode string list: %v", err)
		return nil
	}
	return out
}

func encodeAnswers(m map[string]any) (sql.NullString, error) {
	if len(m) == 0 {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func decodeAnswers(ns sql.NullString) map[string]any {
	if !ns.Valid || strings.TrimSpace(ns.String) == "" {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(ns.String), &out); err != nil {
		log.Printf("sqlite store: decode answers: %v", err)
		return nil
	}
	return out
}

// --- Schools ---

func (s *SQLiteStore) AddSchool(sc *api.School) {
	prefs, err := encodeStrings(sc.Prefectures)
	if err != nil {
		s.logErr("AddSchool: encode prefectures", err)
		return
	}
	_, err = s.db.Exec(`INSERT INTO schools (id, name, name_normalized, status, prefectures, slug, created_at)
      VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sc.ID, sc.Name, sc.NameNormalized, sc.Status, prefs, toNullString(sc.Slug), fmtTime(sc.CreatedAt))
	s.logErr("AddSchool", err)
}

func scanSchool(row interface{ Scan(...any) error }) (*api.School, error) {
	var sc api.School
	var prefs, slug sql.NullString
	var created string
	if err := row.Scan(&sc.ID, &sc.Name, &sc.NameNormalized, &sc.Status, &prefs, &slug, &created); err != nil {
		return nil, err
	}
	sc.Prefectures = decodeStrings(prefs)
	sc.Slug = slug.String
	sc.CreatedAt = parseTime(created)
	return &sc, nil
}

const schoolCols = `id, name, name_normalized, status, prefectures, slug, created_at`

func (s *SQLiteStore) GetSchool(id string) *api.School {
	row := s.db.QueryRow(`SELECT `+schoolCols+` FROM schools WHERE id = ?`, id)
	sc, err := scanSchool(row)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logErr("GetSchool", err)
		}
		return nil
	}
	return sc
}

func (s *SQLiteStore) UpdateSchool(sc *api.School) bool {
	prefs, err := encodeStrings(sc.Prefectures)
	if err != nil {
		s.logErr("UpdateSchool: encode prefectures", err)
		return false
	}
	res, err := s.db.Exec(`UPDATE schools SET name = ?, name_normalized = ?, status = ?, prefectures = ?, slug = ? WHERE id = ?`,
		sc.Name, sc.NameNormalized, sc.Status, prefs, toNullString(sc.Slug), sc.ID)
	if err != nil {
		s.logErr("UpdateSchool", err)
		return false
	}
	n, _ := res.RowsAffected()
	return n > 0
}

func (s *SQLiteStore) FindOwnerByNormalizedName(norm string) string {
	var id string
	err := s.db.QueryRow(`SELECT id FROM schools WHERE name_normalized = ? AND status != 'merged'
      ORDER BY created_at ASC LIMIT 1`, norm).Scan(&id)
	if err == nil {
		return id
	}
	if !errors.Is(err, sql.ErrNoRows) {
		s.logErr("FindOwnerByNormalizedName: schools", err)
		return ""
	}
	err = s.db.QueryRow(`SELECT a.school_id FROM school_aliases a
      JOIN schools sc ON sc.id = a.school_id
      WHERE a.alias_normalized = ? AND sc.status != 'merged' LIMIT 1`, norm).Scan(&id)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logErr("FindOwnerByNormalizedName: aliases", err)
		}
		return ""
	}
	return id
}

func (s *SQLiteStore) listSchools(query string, args ...any) []*api.School {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		s.logErr("listSchools: query", err)
		return nil
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			s.logErr("listSchools: rows.Close", cerr)
		}
	}()
	var out []*api.School
	for rows.Next() {
		if sc, err := scanSchool(rows); err == nil {
			out = append(out, sc)
		} else {
			s.logErr("listSchools: scan", err)
		}
	}
	if err := rows.Err(); err != nil {
		s.logErr("listSchools: rows.Err", err)
	}
	return out
}

func (s *SQLiteStore) ListSchoolsByStatus(status string) []*api.School {
	return s.listSchools(`SELECT `+schoolCols+` FROM schools WHERE status = ? ORDER BY created_at ASC`, status)
}

func (s *SQLiteStore) SearchSchools(norm string, limit int) []*api.School {
	if limit <= 0 {
		limit = 20
	}
	pattern := norm + "%"
	return s.listSchools(`SELECT DISTINCT sc.id, sc.name, sc.name_normalized, sc.status, sc.prefectures, sc.slug, sc.created_at
      FROM schools sc
      LEFT JOIN school_aliases a ON a.school_id = sc.id
      WHERE sc.status != 'merged' AND (sc.name_normalized LIKE ? OR a.alias_normalized LIKE ?)
      ORDER BY sc.name ASC LIMIT ?`, pattern, pattern, limit)
}

// --- Aliases ---

func (s *SQLiteStore) AddAlias(a *api.SchoolAlias) {
	_, err := s.db.Exec(`INSERT INTO school_aliases (id, school_id, alias, alias_normalized, created_at)
      VALUES (?, ?, ?, ?, ?)`,
		a.ID, a.SchoolID, a.Alias, a.AliasNormalized, fmtTime(a.CreatedAt))
	s.logErr("AddAlias", err)
}

func (s *SQLiteStore) GetAlias(id string) *api.SchoolAlias {
	row := s.db.QueryRow(`SELECT id, school_id, alias, alias_normalized, created_at FROM school_aliases WHERE id = ?`, id)
	var a api.SchoolAlias
	var created string
	if err := row.Scan(&a.ID, &a.SchoolID, &a.Alias, &a.AliasNormalized, &created); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logErr("GetAlias", err)
		}
		return nil
	}
	a.CreatedAt = parseTime(created)
	return &a
}

func (s *SQLiteStore) DeleteAlias(id string) bool {
	res, err := s.db.Exec(`DELETE FROM school_aliases WHERE id = ?`, id)
	if err != nil {
		s.logErr("DeleteAlias", err)
		return false
	}
	n, _ := res.RowsAffected()
	return n > 0
}

func (s *SQLiteStore) ListAliasesBySchool(schoolID string) []*api.SchoolAlias {
	rows, err := s.db.Query(`SELECT id, school_id, alias, alias_normalized, created_at
      FROM school_aliases WHERE school_id = ? ORDER BY created_at ASC`, schoolID)
	if err != nil {
		s.logErr("ListAliasesBySchool: query", err)
		return nil
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			s.logErr("ListAliasesBySchool: rows.Close", cerr)
		}
	}()
	var out []*api.SchoolAlias
	for rows.Next() {
		var a api.SchoolAlias
		var created string
		if err := rows.Scan(&a.ID, &a.SchoolID, &a.Alias, &a.AliasNormalized, &created); err == nil {
			a.CreatedAt = parseTime(created)
			out = append(out, &a)
		}
	}
	if err := rows.Err(); err != nil {
		s.logErr("ListAliasesBySchool: rows.Err", err)
	}
	return out
}

// --- Merge ---

// MergeSchools runs the whole collapse in one transaction. The losing name's
// post-merge ownership is decided before any write: the source row no longer
// counts, and aliases the source owned are treated as the target's.
func (s *SQLiteStore) MergeSchools(sourceID, targetID string, nameAlias *api.SchoolAlias) (*api.MergeResult, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var status string
	if err := tx.QueryRow(`SELECT status FROM schools WHERE id = ?`, sourceID).Scan(&status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, services.NewNotFoundError("source school not found")
		}
		return nil, err
	}
	if err := tx.QueryRow(`SELECT status FROM schools WHERE id = ?`, targetID).Scan(&status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, services.NewNotFoundError("target school not found")
		}
		return nil, err
	}

	owner := ""
	err = tx.QueryRow(`SELECT id FROM schools WHERE name_normalized = ? AND status != 'merged' AND id != ? LIMIT 1`,
		nameAlias.AliasNormalized, sourceID).Scan(&owner)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if owner == "" {
		err = tx.QueryRow(`SELECT a.school_id FROM school_aliases a
          JOIN schools sc ON sc.id = a.school_id
          WHERE a.alias_normalized = ? AND sc.status != 'merged' LIMIT 1`,
			nameAlias.AliasNormalized).Scan(&owner)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		if owner == sourceID {
			owner = targetID
		}
	}
	if owner != "" && owner != targetID {
		return nil, services.NewConflictError("source name already resolves to another school")
	}

	out := &api.MergeResult{}
	res, err := tx.Exec(`UPDATE reviews SET school_id = ? WHERE school_id = ?`, targetID, sourceID)
	if err != nil {
		return nil, err
	}
	n, _ := res.RowsAffected()
	out.ReviewsMoved = int(n)

	res, err = tx.Exec(`UPDATE school_aliases SET school_id = ? WHERE school_id = ?`, targetID, sourceID)
	if err != nil {
		return nil, err
	}
	n, _ = res.RowsAffected()
	out.AliasesMoved = int(n)

	if owner == "" {
		_, err = tx.Exec(`INSERT INTO school_aliases (id, school_id, alias, alias_normalized, created_at)
          VALUES (?, ?, ?, ?, ?)`,
			nameAlias.ID, nameAlias.SchoolID, nameAlias.Alias, nameAlias.AliasNormalized, fmtTime(nameAlias.CreatedAt))
		if err != nil {
			return nil, err
		}
		out.NameAliasAdded = true
	}

	if _, err := tx.Exec(`UPDATE schools SET status = 'merged' WHERE id = ?`, sourceID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return out, nil
}

// --- Reviews ---

func (s *SQLiteStore) AddReview(r *api.Review) {
	answers, err := encodeAnswers(r.Answers)
	if err != nil {
		s.logErr("AddReview: encode answers", err)
		return
	}
	_, err = s.db.Exec(`INSERT INTO reviews (id, school_id, author_role, enrollment_status, rating, comment, contact_email, answers, created_at)
      VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.SchoolID, toNullString(r.AuthorRole), toNullString(r.EnrollmentStatus), r.Rating,
		toNullString(r.Comment), toNullString(r.ContactEmail), answers, fmtTime(r.CreatedAt))
	s.logErr("AddReview", err)
}

func scanReview(row interface{ Scan(...any) error }) (*api.Review, error) {
	var r api.Review
	var role, enroll, comment, email, answers sql.NullString
	var created string
	if err := row.Scan(&r.ID, &r.SchoolID, &role, &enroll, &r.Rating, &comment, &email, &answers, &created); err != nil {
		return nil, err
	}
	r.AuthorRole = role.String
	r.EnrollmentStatus = enroll.String
	r.Comment = comment.String
	r.ContactEmail = email.String
	r.Answers = decodeAnswers(answers)
	r.CreatedAt = parseTime(created)
	return &r, nil
}

const reviewCols = `id, school_id, author_role, enrollment_status, rating, comment, contact_email, answers, created_at`

func (s *SQLiteStore) GetReview(id string) *api.Review {
	row := s.db.QueryRow(`SELECT `+reviewCols+` FROM reviews WHERE id = ?`, id)
	r, err := scanReview(row)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logErr("GetReview", err)
		}
		return nil
	}
	return r
}

func (s *SQLiteStore) UpdateReview(r *api.Review) bool {
	answers, err := encodeAnswers(r.Answers)
	if err != nil {
		s.logErr("UpdateReview: encode answers", err)
		return false
	}
	res, err := s.db.Exec(`UPDATE reviews SET school_id = ?, author_role = ?, enrollment_status = ?, rating = ?, comment = ?, contact_email = ?, answers = ? WHERE id = ?`,
		r.SchoolID, toNullString(r.AuthorRole), toNullString(r.EnrollmentStatus), r.Rating,
		toNullString(r.Comment), toNullString(r.ContactEmail), answers, r.ID)
	if err != nil {
		s.logErr("UpdateReview", err)
		return false
	}
	n, _ := res.RowsAffected()
	return n > 0
}

func (s *SQLiteStore) DeleteReview(id string) bool {
	res, err := s.db.Exec(`DELETE FROM reviews WHERE id = ?`, id)
	if err != nil {
		s.logErr("DeleteReview", err)
		return false
	}
	n, _ := res.RowsAffected()
	return n > 0
}

func (s *SQLiteStore) ListReviewsBySchool(schoolID string) []*api.Review {
	rows, err := s.db.Query(`SELECT `+reviewCols+` FROM reviews WHERE school_id = ? ORDER BY created_at ASC`, schoolID)
	if err != nil {
		s.logErr("ListReviewsBySchool: query", err)
		return nil
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			s.logErr("ListReviewsBySchool: rows.Close", cerr)
		}
	}()
	var out []*api.Review
	for rows.Next() {
		if r, err := scanReview(rows); err == nil {
			out = append(out, r)
		} else {
			s.logErr("ListReviewsBySchool: scan", err)
		}
	}
	if err := rows.Err(); err != nil {
		s.logErr("ListReviewsBySchool: rows.Err", err)
	}
	return out
}

// --- Field descriptors ---

func (s *SQLiteStore) ListFieldDescriptors() ([]*api.FieldDescriptor, error) {
	rows, err := s.db.Query(`SELECT key, type, required, enum_values, alias_keys FROM field_descriptors ORDER BY key ASC`)
	if err != nil {
		return nil, fmt.Errorf("list field descriptors: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			s.logErr("ListFieldDescriptors: rows.Close", cerr)
		}
	}()
	var out []*api.FieldDescriptor
	for rows.Next() {
		var d api.FieldDescriptor
		var required int64
		var enum, aliases sql.NullString
		if err := rows.Scan(&d.Key, &d.Type, &required, &enum, &aliases); err != nil {
			return nil, fmt.Errorf("scan field descriptor: %w", err)
		}
		d.Required = required != 0
		d.EnumValues = decodeStrings(enum)
		d.AliasKeys = decodeStrings(aliases)
		out = append(out, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list field descriptors: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) UpsertFieldDescriptor(d *api.FieldDescriptor) {
	enum, err := encodeStrings(d.EnumValues)
	if err != nil {
		s.logErr("UpsertFieldDescriptor: encode enum", err)
		return
	}
	aliases, err := encodeStrings(d.AliasKeys)
	if err != nil {
		s.logErr("UpsertFieldDescriptor: encode aliases", err)
		return
	}
	required := 0
	if d.Required {
		required = 1
	}
	_, err = s.db.Exec(`INSERT INTO field_descriptors (key, type, required, enum_values, alias_keys)
      VALUES (?, ?, ?, ?, ?)
      ON CONFLICT(key) DO UPDATE SET type = excluded.type, required = excluded.required,
        enum_values = excluded.enum_values, alias_keys = excluded.alias_keys`,
		d.Key, d.Type, required, enum, aliases)
	s.logErr("UpsertFieldDescriptor", err)
}

func (s *SQLiteStore) DeleteFieldDescriptor(key string) bool {
	res, err := s.db.Exec(`DELETE FROM field_descriptors WHERE key = ?`, key)
	if err != nil {
		s.logErr("DeleteFieldDescriptor", err)
		return false
	}
	n, _ := res.RowsAffected()
	return n > 0
}

func (s *SQLiteStore) CountFieldDescriptors() int {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM field_descriptors`).Scan(&n); err != nil {
		s.logErr("CountFieldDescriptors", err)
		return 0
	}
	return n
}

// --- Admins ---

func (s *SQLiteStore) AddAdmin(u *api.AdminUser) {
	_, err := s.db.Exec(`INSERT INTO admins (id, email, pass_hash, created_at) VALUES (?, ?, ?, ?)`,
		u.ID, u.Email, u.PassHash, fmtTime(u.CreatedAt))
	s.logErr("AddAdmin", err)
}

func (s *SQLiteStore) FindAdminByEmail(email string) *api.AdminUser {
	row := s.db.QueryRow(`SELECT id, email, pass_hash, created_at FROM admins WHERE email = ?`, email)
	var u api.AdminUser
	var created string
	if err := row.Scan(&u.ID, &u.Email, &u.PassHash, &created); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logErr("FindAdminByEmail", err)
		}
		return nil
	}
	u.CreatedAt = parseTime(created)
	return &u
}

// --- Audit ---

func (s *SQLiteStore) AddAudit(e api.AuditEntry) {
	_, err := s.db.Exec(`INSERT INTO audit_log (time, actor, action, target, note) VALUES (?, ?, ?, ?, ?)`,
		fmtTime(e.Time), toNullString(e.Actor), e.Action, toNullString(e.Target), toNullString(e.Note))
	s.logErr("AddAudit", err)
}

func (s *SQLiteStore) ListAudit() []api.AuditEntry {
	rows, err := s.db.Query(`SELECT time, actor, action, target, note FROM audit_log ORDER BY seq ASC`)
	if err != nil {
		s.logErr("ListAudit: query", err)
		return nil
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			s.logErr("ListAudit: rows.Close", cerr)
		}
	}()
	var out []api.AuditEntry
	for rows.Next() {
		var e api.AuditEntry
		var ts string
		var actor, target, note sql.NullString
		if err := rows.Scan(&ts, &actor, &e.Action, &target, &note); err == nil {
			e.Time = parseTime(ts)
			e.Actor = actor.String
			e.Target = target.String
			e.Note = note.String
			out = append(out, e)
		}
	}
	if err := rows.Err(); err != nil {
		s.logErr("ListAudit: rows.Err", err)
	}
	return out
}
