package circuits

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vocdoni/rui-backend/log"
	"github.com/vocdoni/rui-backend/types"
	"golang.org/x/sync/errgroup"
)

// CheckHashes makes Load and Download refuse content whose sha256 differs
// from the artifact hash. Setting RUI_CHECK_HASHES to false or 0 disables it.
var CheckHashes = true

// BaseDir is the directory of the artifact cache, named after the content
// hashes. It defaults to RUI_ARTIFACTS_DIR or ~/.cache/rui-artifacts.
var BaseDir string

func init() {
	if v := strings.ToLower(os.Getenv("RUI_CHECK_HASHES")); v == "false" || v == "0" {
		CheckHashes = false
	}
	if dir := os.Getenv("RUI_ARTIFACTS_DIR"); dir != "" {
		BaseDir = dir
		return
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		log.Warnf("unable to access user home directory, using temporary directory: %v", err)
		BaseDir = filepath.Join(os.TempDir(), "rui-artifacts")
		return
	}
	BaseDir = filepath.Join(home, ".cache", "rui-artifacts")
}

// Artifact is a cacheable blob (a constraint system or a key) identified by
// the sha256 of its content. RemoteURL is optional and used when the blob is
// not in the cache.
type Artifact struct {
	RemoteURL string
	Hash      []byte
	Content   []byte
}

func (k *Artifact) path() string {
	return filepath.Join(BaseDir, hex.EncodeToString(k.Hash))
}

// Load fills Content from the cache, downloading it first when it is not
// cached and a remote URL is set. Loaded artifacts are left untouched.
func (k *Artifact) Load(ctx context.Context) error {
	if len(k.Content) != 0 {
		return nil
	}
	if len(k.Hash) == 0 {
		return fmt.Errorf("artifact hash not provided")
	}
	content, err := os.ReadFile(k.path())
	switch {
	case os.IsNotExist(err):
		if k.RemoteURL == "" {
			return fmt.Errorf("artifact %x not cached and remote url not provided", k.Hash)
		}
		if err := k.Download(ctx); err != nil {
			return err
		}
		return nil
	case err != nil:
		return fmt.Errorf("error reading artifact %x: %w", k.Hash, err)
	}
	if err := k.checkHash(content); err != nil {
		return err
	}
	k.Content = content
	return nil
}

func (k *Artifact) checkHash(content []byte) error {
	if !CheckHashes {
		return nil
	}
	if hash := sha256.Sum256(content); !bytes.Equal(hash[:], k.Hash) {
		return fmt.Errorf("hash mismatch: expected %x, got %x", k.Hash, hash)
	}
	return nil
}

// Store writes Content to the cache and sets Hash to its sha256. A Hash that
// is already set must match.
func (k *Artifact) Store() error {
	if len(k.Content) == 0 {
		return fmt.Errorf("no content to store")
	}
	hash := sha256.Sum256(k.Content)
	if len(k.Hash) != 0 && !bytes.Equal(k.Hash, hash[:]) {
		return fmt.Errorf("hash mismatch: expected %x, got %x", k.Hash, hash)
	}
	k.Hash = hash[:]
	return k.write(k.Content)
}

// write stores the content through a .partial file renamed into place.
func (k *Artifact) write(content []byte) error {
	if err := os.MkdirAll(BaseDir, 0o755); err != nil {
		return fmt.Errorf("error creating the base directory: %w", err)
	}
	partial := k.path() + ".partial"
	if err := os.WriteFile(partial, content, 0o644); err != nil {
		return fmt.Errorf("error writing artifact file: %w", err)
	}
	return os.Rename(partial, k.path())
}

// Download fetches the artifact from RemoteURL, checks its hash, caches it
// and sets Content.
func (k *Artifact) Download(ctx context.Context) error {
	if k.RemoteURL == "" {
		return fmt.Errorf("artifact %x has no remote url", k.Hash)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, k.RemoteURL, nil)
	if err != nil {
		return fmt.Errorf("error creating the artifact request: %w", err)
	}
	start := time.Now()
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("error downloading %s: %w", k.RemoteURL, err)
	}
	defer func() { _ = res.Body.Close() }()
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("error downloading %s: http status %d", k.RemoteURL, res.StatusCode)
	}
	content, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("error downloading %s: %w", k.RemoteURL, err)
	}
	if err := k.checkHash(content); err != nil {
		return err
	}
	if err := k.write(content); err != nil {
		return err
	}
	k.Content = content
	log.Infow("artifact downloaded", "url", k.RemoteURL, "bytes", len(content), "took", time.Since(start).String())
	return nil
}

// CircuitArtifacts groups the constraint system and the Groth16 key pair of
// a circuit. Any of them may be nil.
type CircuitArtifacts struct {
	circuitDefinition *Artifact
	provingKey        *Artifact
	verifyingKey      *Artifact
}

// NewCircuitArtifacts returns the artifacts of a circuit.
func NewCircuitArtifacts(circuit, provingKey, verifyingKey *Artifact) *CircuitArtifacts {
	return &CircuitArtifacts{
		circuitDefinition: circuit,
		provingKey:        provingKey,
		verifyingKey:      verifyingKey,
	}
}

func (ca *CircuitArtifacts) named() map[string]*Artifact {
	return map[string]*Artifact{
		"circuit definition": ca.circuitDefinition,
		"proving key":        ca.provingKey,
		"verifying key":      ca.verifyingKey,
	}
}

// LoadAll loads the artifacts concurrently, downloading the missing ones if
// they have a remote URL.
func (ca *CircuitArtifacts) LoadAll(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for name, a := range ca.named() {
		if a == nil {
			continue
		}
		g.Go(func() error {
			if err := a.Load(ctx); err != nil {
				return fmt.Errorf("error loading %s: %w", name, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// StoreAll writes every loaded artifact to the local cache.
func (ca *CircuitArtifacts) StoreAll() error {
	for name, a := range ca.named() {
		if a == nil {
			continue
		}
		if err := a.Store(); err != nil {
			return fmt.Errorf("error storing %s: %w", name, err)
		}
	}
	return nil
}

func artifactContent(a *Artifact) types.HexBytes {
	if a == nil {
		return nil
	}
	return a.Content
}

// CircuitDefinition returns the serialized constraint system, nil if it is
// not loaded.
func (ca *CircuitArtifacts) CircuitDefinition() types.HexBytes {
	return artifactContent(ca.circuitDefinition)
}

// ProvingKey returns the serialized proving key, nil if it is not loaded.
func (ca *CircuitArtifacts) ProvingKey() types.HexBytes {
	return artifactContent(ca.provingKey)
}

// VerifyingKey returns the serialized verifying key, nil if it is not
// loaded.
func (ca *CircuitArtifacts) VerifyingKey() types.HexBytes {
	return artifactContent(ca.verifyingKey)
}
