package services

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/dmitrijs2005/postkeeper/internal/client/client"
	"github.com/dmitrijs2005/postkeeper/internal/client/models"
	"github.com/stretchr/testify/require"
)

// ---- helpers ----

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := client.InitDatabase(context.Background(), filepath.Join(t.TempDir(), "client.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func insertMeta(t *testing.T, db *sql.DB, k string, v []byte) {
	t.Helper()
	_, err := db.Exec(`INSERT INTO metadata(key,value) VALUES(?,?)`, k, v)
	require.NoError(t, err)
}

func getMeta(t *testing.T, db *sql.DB, k string) []byte {
	t.Helper()
	var v []byte
	err := db.QueryRow(`SELECT value FROM metadata WHERE key=?`, k).Scan(&v)
	require.NoError(t, err)
	return v
}

// ---- fake client ----

// fakeClient implements client.Client for service tests.
type fakeClient struct {
	CloseErr    error
	RegisterErr error

	GetSaltRet []byte
	GetSaltErr error

	LoginErr error

	PingErr error

	UploadKeys []string
	UploadErr  error

	SubmitRet models.RemoteStatus
	SubmitErr error

	FetchRet []models.RemoteStatus
	FetchErr error

	LastRegisterUser string
	LastRegisterSalt []byte
	LastRegisterKey  []byte

	LastGetSaltUser string

	LastLoginUser string
	LastLoginKey  []byte

	UploadCalls []string
	Submissions []models.Submission
	LoggedOut   bool
}

func (f *fakeClient) Close() error { return f.CloseErr }

func (f *fakeClient) Register(ctx context.Context, username string, salt []byte, key []byte) error {
	f.LastRegisterUser = username
	f.LastRegisterSalt = append([]byte(nil), salt...)
	f.LastRegisterKey = append([]byte(nil), key...)
	return f.RegisterErr
}

func (f *fakeClient) GetSalt(ctx context.Context, username string) ([]byte, error) {
	f.LastGetSaltUser = username
	return append([]byte(nil), f.GetSaltRet...), f.GetSaltErr
}

func (f *fakeClient) Login(ctx context.Context, username string, key []byte) error {
	f.LastLoginUser = username
	f.LastLoginKey = append([]byte(nil), key...)
	return f.LoginErr
}

func (f *fakeClient) Logout() { f.LoggedOut = true }

func (f *fakeClient) Ping(ctx context.Context) error { return f.PingErr }

func (f *fakeClient) GetUploadURL(ctx context.Context, contentType string) (string, string, error) {
	if f.UploadErr != nil {
		return "", "", f.UploadErr
	}
	n := len(f.UploadCalls)
	f.UploadCalls = append(f.UploadCalls, contentType)
	key := "key"
	if n < len(f.UploadKeys) {
		key = f.UploadKeys[n]
	}
	return key, "https://storage/" + key, nil
}

func (f *fakeClient) SubmitPost(ctx context.Context, s models.Submission) (models.RemoteStatus, error) {
	f.Submissions = append(f.Submissions, s)
	if f.SubmitErr != nil {
		return models.RemoteStatus{}, f.SubmitErr
	}
	st := f.SubmitRet
	st.Ref = s.Post.Ref()
	return st, nil
}

func (f *fakeClient) FetchStatus(ctx context.Context, refs []models.PostRef) ([]models.RemoteStatus, error) {
	return f.FetchRet, f.FetchErr
}

// ---- fake uploader ----

type put struct {
	URL         string
	ContentType string
	Body        []byte
}

type fakeUploader struct {
	puts []put
	err  error
}

func (u *fakeUploader) Put(ctx context.Context, url, contentType string, body []byte) error {
	if u.err != nil {
		return u.err
	}
	u.puts = append(u.puts, put{URL: url, ContentType: contentType, Body: body})
	return nil
}
