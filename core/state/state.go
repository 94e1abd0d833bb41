package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"
	"go.uber.org/zap"
)

// 数据库桶名称
const (
	sessionsBucket = "sessions"
	filesBucket    = "files"
	metaBucket     = "meta"

	lastSessionKey = "last_session"
)

// ErrNoSession 日志中没有任何会话
var ErrNoSession = errors.New("没有运行记录")

// Session 一次运行的记录
type Session struct {
	ID          string            `json:"id"`
	Root        string            `json:"root"`
	StartTime   time.Time         `json:"start_time"`
	EndTime     time.Time         `json:"end_time,omitempty"`
	Options     map[string]string `json:"options,omitempty"`
	Summary     *Summary          `json:"summary,omitempty"`
	Interrupted bool              `json:"interrupted"`
}

// Summary 会话结束时的汇总
type Summary struct {
	Total       int   `json:"total"`
	Success     int   `json:"success"`
	Failed      int   `json:"failed"`
	Skipped     int   `json:"skipped"`
	BytesInput  int64 `json:"bytes_input"`
	BytesOutput int64 `json:"bytes_output"`
}

// FileRecord 单个文件的处理记录
type FileRecord struct {
	Path       string        `json:"path"`
	Output     string        `json:"output"`
	Outcome    string        `json:"outcome"`
	Mode       string        `json:"mode"`
	InputSize  int64         `json:"input_size"`
	OutputSize int64         `json:"output_size"`
	Duration   time.Duration `json:"duration"`
	Error      string        `json:"error,omitempty"`
	Timestamp  time.Time     `json:"timestamp"`
}

// Manager bbolt 运行日志
type Manager struct {
	db     *bbolt.DB
	dbPath string
	logger *zap.Logger
}

// NewManager 打开或创建运行日志数据库
func NewManager(dbPath string, logger *zap.Logger) (*Manager, error) {
	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	m := &Manager{db: db, dbPath: dbPath, logger: logger}
	if err := m.initBuckets(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to initialize buckets: %w, and failed to close db: %v", err, closeErr)
		}
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}
	return m, nil
}

// initBuckets 初始化数据库桶
func (m *Manager) initBuckets() error {
	return m.db.Update(func(tx *bbolt.Tx) error {
		for _, bucket := range []string{sessionsBucket, filesBucket, metaBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(bucket)); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
}

// BeginSession 开始新会话
func (m *Manager) BeginSession(root string, options map[string]string) (*Session, error) {
	s := &Session{
		ID:        uuid.NewString(),
		Root:      root,
		StartTime: time.Now(),
		Options:   options,
	}
	err := m.db.Update(func(tx *bbolt.Tx) error {
		if err := putJSON(tx.Bucket([]byte(sessionsBucket)), s.ID, s); err != nil {
			return err
		}
		if _, err := tx.Bucket([]byte(filesBucket)).CreateBucketIfNotExists([]byte(s.ID)); err != nil {
			return err
		}
		return tx.Bucket([]byte(metaBucket)).Put([]byte(lastSessionKey), []byte(s.ID))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to begin session: %w", err)
	}
	m.logger.Debug("运行记录已创建", zap.String("session", s.ID))
	return s, nil
}

// RecordFile 写入单个文件记录，同一路径后写覆盖
func (m *Manager) RecordFile(sessionID string, rec FileRecord) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	return m.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(filesBucket)).Bucket([]byte(sessionID))
		if b == nil {
			return fmt.Errorf("unknown session: %s", sessionID)
		}
		return putJSON(b, rec.Path, rec)
	})
}

// FinishSession 写入汇总
func (m *Manager) FinishSession(sessionID string, summary Summary, interrupted bool) error {
	return m.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(sessionsBucket))
		var s Session
		if err := getJSON(b, sessionID, &s); err != nil {
			return err
		}
		s.EndTime = time.Now()
		s.Summary = &summary
		s.Interrupted = interrupted
		return putJSON(b, sessionID, &s)
	})
}

// LastSession 最近一次会话
func (m *Manager) LastSession() (*Session, error) {
	var s Session
	err := m.db.View(func(tx *bbolt.Tx) error {
		id := tx.Bucket([]byte(metaBucket)).Get([]byte(lastSessionKey))
		if id == nil {
			return ErrNoSession
		}
		return getJSON(tx.Bucket([]byte(sessionsBucket)), string(id), &s)
	})
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ListFiles 列出会话中的全部文件记录
func (m *Manager) ListFiles(sessionID string) ([]FileRecord, error) {
	var records []FileRecord
	err := m.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(filesBucket)).Bucket([]byte(sessionID))
		if b == nil {
			return fmt.Errorf("unknown session: %s", sessionID)
		}
		return b.ForEach(func(_, v []byte) error {
			var rec FileRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			records = append(records, rec)
			return nil
		})
	})
	return records, err
}

// Close 关闭数据库
func (m *Manager) Close() error {
	return m.db.Close()
}

func putJSON(b *bbolt.Bucket, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return b.Put([]byte(key), data)
}

func getJSON(b *bbolt.Bucket, key string, v interface{}) error {
	data := b.Get([]byte(key))
	if data == nil {
		return fmt.Errorf("record not found: %s", key)
	}
	return json.Unmarshal(data, v)
}
