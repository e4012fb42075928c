// Copyright 2025 ByteDance Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cache

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/crust-lang/crust/internal/errs"
)

// fileBackend persists each entry as one JSON file named by its
// fingerprint, so a cache survives across `crust translate` invocations
// against the same --cache-dir. This is the concrete default a caller
// reaches for once a single process's memoryBackend isn't enough; the
// real backend (§6's "persistent cache backend (a keyed blob store)") is
// still an out-of-scope external collaborator per spec §1 — this is just
// the simplest thing satisfying Backend with a directory of files.
type fileBackend struct {
	dir string
}

// NewFileBackend returns a Backend that stores entries under dir,
// creating it if necessary.
func NewFileBackend(dir string) (Backend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errs.Wrapf(err, "create cache directory %s", dir)
	}
	return &fileBackend{dir: dir}, nil
}

func (b *fileBackend) path(fingerprint string) string {
	return filepath.Join(b.dir, fingerprint+".json")
}

func (b *fileBackend) Get(_ context.Context, fingerprint string) (Value, bool, error) {
	data, err := os.ReadFile(b.path(fingerprint))
	if err != nil {
		if os.IsNotExist(err) {
			return Value{}, false, nil
		}
		return Value{}, false, errs.Wrapf(err, "read cache entry %s", fingerprint)
	}
	var v Value
	if err := json.Unmarshal(data, &v); err != nil {
		return Value{}, false, errs.Wrapf(err, "decode cache entry %s", fingerprint)
	}
	return v, true, nil
}

func (b *fileBackend) Put(_ context.Context, fingerprint string, v Value) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errs.Wrapf(err, "encode cache entry %s", fingerprint)
	}
	tmp := b.path(fingerprint) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errs.Wrapf(err, "write cache entry %s", fingerprint)
	}
	return os.Rename(tmp, b.path(fingerprint))
}
