package services

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/djamrezki/storage-stream-api/internal/common"
	"github.com/djamrezki/storage-stream-api/internal/dbx"
	"github.com/djamrezki/storage-stream-api/internal/logging"
	"github.com/djamrezki/storage-stream-api/internal/server/models"
	"github.com/djamrezki/storage-stream-api/internal/server/repositories/files"
	"github.com/djamrezki/storage-stream-api/internal/server/repositories/links"
	"github.com/djamrezki/storage-stream-api/internal/server/scan"
	"github.com/djamrezki/storage-stream-api/internal/server/storage"
)

// -------- test fakes --------

// opLog records cross-component operations so tests can assert ordering.
type opLog struct {
	mu  sync.Mutex
	ops []string
}

func (l *opLog) add(op string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ops = append(l.ops, op)
}

func (l *opLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.ops...)
}

// fakeFileRepo emulates the metadata store: the mutex plus uniqueness maps
// play the role of the compound unique indexes, arbitrating concurrent
// inserts atomically exactly like the real store does.
type fakeFileRepo struct {
	files.Repository

	mu       sync.Mutex
	nextID   int
	entries  map[string]*models.FileEntry
	byName   map[string]string // owner+"\x00"+filenameLc -> id
	byDigest map[string]string // owner+"\x00"+sha256 -> id

	existsNameCalls int
	insertErr       error
	updateErr       error
	log             *opLog
}

func newFakeFileRepo(log *opLog) *fakeFileRepo {
	return &fakeFileRepo{
		entries:  map[string]*models.FileEntry{},
		byName:   map[string]string{},
		byDigest: map[string]string{},
		log:      log,
	}
}

func nameKey(owner, lc string) string    { return owner + "\x00" + lc }
func digestKey(owner, sha string) string { return owner + "\x00" + sha }

func (f *fakeFileRepo) Insert(ctx context.Context, entry *models.FileEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	if _, ok := f.byName[nameKey(entry.OwnerID, entry.FilenameLc)]; ok {
		return common.ErrDuplicateFilename
	}
	if _, ok := f.byDigest[digestKey(entry.OwnerID, entry.ContentSHA256)]; ok {
		return common.ErrDuplicateContent
	}
	f.nextID++
	entry.ID = fmt.Sprintf("file-%d", f.nextID)
	entry.Version = 1
	cp := *entry
	f.entries[entry.ID] = &cp
	f.byName[nameKey(entry.OwnerID, entry.FilenameLc)] = entry.ID
	f.byDigest[digestKey(entry.OwnerID, entry.ContentSHA256)] = entry.ID
	return nil
}

func (f *fakeFileRepo) GetByID(ctx context.Context, id string) (*models.FileEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.entries[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *entry
	return &cp, nil
}

func (f *fakeFileRepo) ExistsByOwnerAndFilenameLc(ctx context.Context, ownerID, filenameLc string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.existsNameCalls++
	_, ok := f.byName[nameKey(ownerID, filenameLc)]
	return ok, nil
}

func (f *fakeFileRepo) ExistsByOwnerAndDigest(ctx context.Context, ownerID, sha string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.byDigest[digestKey(ownerID, sha)]
	return ok, nil
}

func (f *fakeFileRepo) UpdateFilenameWithVersionCheck(ctx context.Context, entry *models.FileEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	stored, ok := f.entries[entry.ID]
	if !ok || stored.Version != entry.Version {
		return common.ErrStaleUpdate
	}
	if id, taken := f.byName[nameKey(stored.OwnerID, entry.FilenameLc)]; taken && id != entry.ID {
		return common.ErrDuplicateFilename
	}
	delete(f.byName, nameKey(stored.OwnerID, stored.FilenameLc))
	stored.Filename = entry.Filename
	stored.FilenameLc = entry.FilenameLc
	stored.Version++
	f.byName[nameKey(stored.OwnerID, stored.FilenameLc)] = entry.ID
	entry.Version = stored.Version
	return nil
}

func (f *fakeFileRepo) DeleteByID(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.log != nil {
		f.log.add("files.delete")
	}
	entry, ok := f.entries[id]
	if !ok {
		return nil
	}
	delete(f.byName, nameKey(entry.OwnerID, entry.FilenameLc))
	delete(f.byDigest, digestKey(entry.OwnerID, entry.ContentSHA256))
	delete(f.entries, id)
	return nil
}

func (f *fakeFileRepo) ListByOwner(ctx context.Context, ownerID string, tags []string) ([]*models.FileEntry, error) {
	return f.listWhere(func(e *models.FileEntry) bool { return e.OwnerID == ownerID }, tags), nil
}

func (f *fakeFileRepo) ListPublic(ctx context.Context, tags []string) ([]*models.FileEntry, error) {
	return f.listWhere(func(e *models.FileEntry) bool { return e.Visibility == models.VisibilityPublic }, tags), nil
}

func (f *fakeFileRepo) listWhere(match func(*models.FileEntry) bool, tags []string) []*models.FileEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	filter := models.NormalizeTags(tags)
	var out []*models.FileEntry
	for _, e := range f.entries {
		if !match(e) || !hasAllTags(e.Tags, filter) {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FilenameLc < out[j].FilenameLc })
	return out
}

func hasAllTags(have, want []string) bool {
	for _, w := range want {
		found := false
		for _, h := range have {
			if h == w {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// fakeLinkRepo emulates the download_links table with its token-unique
// index.
type fakeLinkRepo struct {
	links.Repository

	mu         sync.Mutex
	nextID     int
	byToken    map[string]*models.DownloadLink
	collisions int // force the first N creates to collide
	incrErr    error
	log        *opLog
}

func newFakeLinkRepo(log *opLog) *fakeLinkRepo {
	return &fakeLinkRepo{byToken: map[string]*models.DownloadLink{}, log: log}
}

func (f *fakeLinkRepo) Create(ctx context.Context, link *models.DownloadLink) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.collisions > 0 {
		f.collisions--
		return common.ErrAlreadyExists
	}
	if _, ok := f.byToken[link.Token]; ok {
		return common.ErrAlreadyExists
	}
	f.nextID++
	link.ID = fmt.Sprintf("link-%d", f.nextID)
	cp := *link
	f.byToken[link.Token] = &cp
	return nil
}

func (f *fakeLinkRepo) GetByToken(ctx context.Context, token string) (*models.DownloadLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	link, ok := f.byToken[token]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *link
	return &cp, nil
}

func (f *fakeLinkRepo) IncrementAccessCount(ctx context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.incrErr != nil {
		return f.incrErr
	}
	if link, ok := f.byToken[token]; ok {
		link.AccessCount++
	}
	return nil
}

func (f *fakeLinkRepo) DeleteAllForFile(ctx context.Context, fileID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.log != nil {
		f.log.add("links.deleteAll")
	}
	for token, link := range f.byToken {
		if link.FileID == fileID {
			delete(f.byToken, token)
		}
	}
	return nil
}

func (f *fakeLinkRepo) countForFile(fileID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, link := range f.byToken {
		if link.FileID == fileID {
			n++
		}
	}
	return n
}

// fakeRepoManager hands out the same fakes regardless of the DBTX.
type fakeRepoManager struct {
	files *fakeFileRepo
	links *fakeLinkRepo
}

func (m *fakeRepoManager) Files(dbx.DBTX) files.Repository { return m.files }
func (m *fakeRepoManager) Links(dbx.DBTX) links.Repository { return m.links }
func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error {
	return nil
}

// fakeBlobStore keeps blobs in memory, with configurable reported size and
// injectable failures.
type fakeBlobStore struct {
	mu         sync.Mutex
	objects    map[string][]byte
	reportSize bool // false: report -1 like the S3 adapter
	saveErr    error
	deleteErr  error
	log        *opLog
}

func newFakeBlobStore(log *opLog) *fakeBlobStore {
	return &fakeBlobStore{objects: map[string][]byte{}, reportSize: true, log: log}
}

func (f *fakeBlobStore) Save(ctx context.Context, r io.Reader, hints storage.SaveHints) (storage.SaveResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return storage.SaveResult{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return storage.SaveResult{}, f.saveErr
	}
	key := storage.NewKey(hints.OwnerID)
	f.objects[key] = data
	size := int64(len(data))
	if !f.reportSize {
		size = -1
	}
	return storage.SaveResult{Key: key, Size: size}, nil
}

func (f *fakeBlobStore) Open(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[key]
	if !ok {
		return nil, 0, common.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), int64(len(data)), nil
}

func (f *fakeBlobStore) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.log != nil {
		f.log.add("blob.delete")
	}
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.objects, key)
	return nil
}

func (f *fakeBlobStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}

// fakeDetector returns a fixed detection result.
type fakeDetector struct {
	mediaType string
}

func (d *fakeDetector) Detect(head []byte, filenameHint string) (string, bool) {
	if d.mediaType == "" {
		return "", false
	}
	return d.mediaType, true
}

// fakeScanner forwards the stream and reports a fixed verdict.
type fakeScanner struct {
	report scan.Report
}

func (s *fakeScanner) Wrap(r io.Reader) (io.Reader, func() scan.Report) {
	return r, func() scan.Report { return s.report }
}

// -------- harness --------

type harness struct {
	svc   *FileService
	repo  *fakeFileRepo
	links *fakeLinkRepo
	blobs *fakeBlobStore
	mock  sqlmock.Sqlmock
	log   *opLog
	det   *fakeDetector
	scn   *fakeScanner
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	log := &opLog{}
	repo := newFakeFileRepo(log)
	linkRepo := newFakeLinkRepo(log)
	blobs := newFakeBlobStore(log)
	det := &fakeDetector{}
	scn := &fakeScanner{report: scan.Report{Verdict: scan.Clean}}
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

	svc := NewFileService(db, &fakeRepoManager{files: repo, links: linkRepo}, blobs, det, scn, logger, 0)
	return &harness{svc: svc, repo: repo, links: linkRepo, blobs: blobs, mock: mock, log: log, det: det, scn: scn}
}

func (h *harness) upload(t *testing.T, owner, name, content string) *UploadResult {
	t.Helper()
	res, err := h.svc.Upload(context.Background(), UploadCommand{
		OwnerID:  owner,
		Filename: name,
		Body:     strings.NewReader(content),
	})
	if err != nil {
		t.Fatalf("upload(%s, %s) failed: %v", owner, name, err)
	}
	return res
}

// expectDeleteTx arms the sqlmock for the transactional tail of the
// deletion cascade.
func (h *harness) expectDeleteTx() {
	h.mock.ExpectBegin()
	h.mock.ExpectCommit()
}
