package storage

// files.go — persistencia flat-file del estado del bridge.
//
// Un solo proceso escribe cada archivo (cron secuencial), así que no hay
// locking: la garantía de consistencia es la reescritura atómica completa
// (temp + rename en el mismo directorio).

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/alejandrodnm/whalebridge/internal/domain"
)

// writeAtomic escribe el archivo completo vía temp + rename.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %q: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

// LedgerStore persiste el ledger como JSON indentado.
type LedgerStore struct {
	path string
}

// NewLedgerStore crea un store sobre la ruta dada.
func NewLedgerStore(path string) *LedgerStore {
	return &LedgerStore{path: path}
}

// Exists reporta si el archivo de ledger ya existe.
func (s *LedgerStore) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Load lee el ledger. Archivo ausente → domain.ErrLedgerMissing: el
// operador tiene que correr init primero.
func (s *LedgerStore) Load() (*domain.Ledger, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("storage.LedgerStore: %q: %w", s.path, domain.ErrLedgerMissing)
		}
		return nil, fmt.Errorf("storage.LedgerStore: read %q: %w", s.path, err)
	}

	var ledger domain.Ledger
	if err := json.Unmarshal(data, &ledger); err != nil {
		return nil, fmt.Errorf("storage.LedgerStore: parse %q: %w", s.path, err)
	}
	return &ledger, nil
}

// Save reescribe el ledger completo de forma atómica.
func (s *LedgerStore) Save(ledger *domain.Ledger) error {
	data, err := json.MarshalIndent(ledger, "", "  ")
	if err != nil {
		return fmt.Errorf("storage.LedgerStore: marshal: %w", err)
	}
	if err := writeAtomic(s.path, data); err != nil {
		return fmt.Errorf("storage.LedgerStore: save %q: %w", s.path, err)
	}
	return nil
}

// PendingStore persiste el estado de propuestas pendientes.
type PendingStore struct {
	path string
}

// NewPendingStore crea un store sobre la ruta dada.
func NewPendingStore(path string) *PendingStore {
	return &PendingStore{path: path}
}

// Load lee el estado pendiente. Archivo ausente → estado vacío.
// El formato legacy (lista desnuda de propuestas) se acepta y se
// convierte a la forma actual con daily_stats vacío.
func (s *PendingStore) Load() (*domain.PendingState, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.NewPendingState(), nil
		}
		return nil, fmt.Errorf("storage.PendingStore: read %q: %w", s.path, err)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var proposals []domain.PendingProposal
		if err := json.Unmarshal(trimmed, &proposals); err != nil {
			return nil, fmt.Errorf("storage.PendingStore: parse legacy list %q: %w", s.path, err)
		}
		return &domain.PendingState{Proposals: proposals}, nil
	}

	var state domain.PendingState
	if err := json.Unmarshal(trimmed, &state); err != nil {
		return nil, fmt.Errorf("storage.PendingStore: parse %q: %w", s.path, err)
	}
	if state.Proposals == nil {
		state.Proposals = []domain.PendingProposal{}
	}
	return &state, nil
}

// Save reescribe el estado pendiente de forma atómica.
func (s *PendingStore) Save(state *domain.PendingState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("storage.PendingStore: marshal: %w", err)
	}
	if err := writeAtomic(s.path, data); err != nil {
		return fmt.Errorf("storage.PendingStore: save %q: %w", s.path, err)
	}
	return nil
}

// SignalStore persiste el resultado del scan del tracker.
type SignalStore struct {
	path string
}

// NewSignalStore crea un store sobre la ruta dada.
func NewSignalStore(path string) *SignalStore {
	return &SignalStore{path: path}
}

// LoadScan lee el último scan. Archivo ausente es error: el bridge no
// puede correr sin un scan previo del tracker.
func (s *SignalStore) LoadScan() (*domain.ScanResult, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("storage.SignalStore: read %q (run the tracker with -json first): %w", s.path, err)
	}

	var result domain.ScanResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("storage.SignalStore: parse %q: %w", s.path, err)
	}
	return &result, nil
}

// SaveScan reescribe el resultado del scan de forma atómica.
func (s *SignalStore) SaveScan(result *domain.ScanResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("storage.SignalStore: marshal: %w", err)
	}
	if err := writeAtomic(s.path, data); err != nil {
		return fmt.Errorf("storage.SignalStore: save %q: %w", s.path, err)
	}
	return nil
}
