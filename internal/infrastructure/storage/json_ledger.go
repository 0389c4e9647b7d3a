package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/kaptinlin/jsonrepair"

	"ConceptEnricher/internal/config"
	"ConceptEnricher/internal/domain"
	"ConceptEnricher/internal/ports"
)

// JSONLedgerStore keeps the keyphrase ledger, the concept ledger and the checkpoint as JSON files.
// Every Save rewrites complete snapshots through a temp file and rename. It assumes a single writer.
type JSONLedgerStore struct {
	keyphrasePath  string
	conceptPath    string
	checkpointPath string
	logger         *slog.Logger
	now            func() time.Time
}

var _ ports.LedgerStore = (*JSONLedgerStore)(nil)

// NewJSONLedgerStore resolves file names inside cfg.Dir.
func NewJSONLedgerStore(cfg config.LedgerConfig, logger *slog.Logger) *JSONLedgerStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &JSONLedgerStore{
		keyphrasePath:  filepath.Join(cfg.Dir, cfg.KeyphraseFile),
		conceptPath:    filepath.Join(cfg.Dir, cfg.ConceptFile),
		checkpointPath: filepath.Join(cfg.Dir, cfg.CheckpointFile),
		logger:         logger,
		now:            time.Now,
	}
}

// Load reads all three files. Missing files count as empty; corrupt files are
// repaired when possible, otherwise backed up and treated as empty.
func (s *JSONLedgerStore) Load(_ context.Context) (domain.Ledgers, domain.Checkpoint, error) {
	keyphrases, err := readRecovering[[]domain.KeyphraseEntry](s, s.keyphrasePath)
	if err != nil {
		return domain.Ledgers{}, domain.Checkpoint{}, err
	}
	concepts, err := readRecovering[[]domain.ConceptEntry](s, s.conceptPath)
	if err != nil {
		return domain.Ledgers{}, domain.Checkpoint{}, err
	}
	checkpoint, err := readRecovering[domain.Checkpoint](s, s.checkpointPath)
	if err != nil {
		return domain.Ledgers{}, domain.Checkpoint{}, err
	}
	return domain.Ledgers{Keyphrases: keyphrases, Concepts: concepts}, checkpoint, nil
}

// Save writes complete snapshots of the concept ledger, then the keyphrase ledger, then the
// checkpoint. A keyphrase entry marks an article done, so it must never land before its concepts.
func (s *JSONLedgerStore) Save(_ context.Context, ledgers domain.Ledgers, checkpoint domain.Checkpoint) error {
	keyphrases := ledgers.Keyphrases
	if keyphrases == nil {
		keyphrases = []domain.KeyphraseEntry{}
	}
	concepts := ledgers.Concepts
	if concepts == nil {
		concepts = []domain.ConceptEntry{}
	}
	if err := WriteJSON(s.conceptPath, concepts); err != nil {
		return fmt.Errorf("concept ledger: %w", err)
	}
	if err := WriteJSON(s.keyphrasePath, keyphrases); err != nil {
		return fmt.Errorf("keyphrase ledger: %w", err)
	}
	if err := WriteJSON(s.checkpointPath, checkpoint); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	return nil
}

func readRecovering[T any](s *JSONLedgerStore, path string) (T, error) {
	var zero T
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return zero, nil
		}
		return zero, fmt.Errorf("read %s: %w", path, err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return zero, nil
	}

	var v T
	decodeErr := json.Unmarshal(raw, &v)
	if decodeErr == nil {
		return v, nil
	}
	s.logger.Warn("ledger file is corrupt", "path", path, "error", decodeErr)

	backup := fmt.Sprintf("%s.corrupt-%s", path, s.now().UTC().Format("20060102T150405"))
	if err := os.WriteFile(backup, raw, 0o644); err != nil {
		return zero, fmt.Errorf("back up corrupt %s: %w", path, err)
	}

	var fixed T
	repaired, rerr := jsonrepair.JSONRepair(string(raw))
	if rerr == nil && json.Unmarshal([]byte(repaired), &fixed) == nil {
		if err := WriteJSON(path, fixed); err != nil {
			return zero, fmt.Errorf("rewrite repaired %s: %w", path, err)
		}
		s.logger.Warn("LEDGER REPAIRED: verify recovered entries", "path", path, "backup", backup)
		return fixed, nil
	}

	s.logger.Error("LEDGER UNREADABLE: starting from an empty ledger, prior bytes kept in backup",
		"path", path, "backup", backup)
	return zero, nil
}

// WriteJSON atomically replaces path with the indented JSON encoding of v.
func WriteJSON(path string, v any) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

// ReadJSON decodes path into v; a missing file is an error here.
func ReadJSON(path string, v any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
