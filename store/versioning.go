// Copyright 2018 Mark Wardle / Eldrix Ltd
//
//    Licensed under the Apache License, Version 2.0 (the "License");
//    you may not use this file except in compliance with the License.
//    You may obtain a copy of the License at
//
//        http://www.apache.org/licenses/LICENSE-2.0
//
//    Unless required by applicable law or agreed to in writing, software
//    distributed under the License is distributed on an "AS IS" BASIS,
//    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//    See the License for the specific language governing permissions and
//    limitations under the License.
//

package store

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/eldrix/snomed-terminology/apperr"
)

// Descriptor is a small file-backed record of a store directory's on-disk
// layout version, letting a future release detect and refuse to open an
// incompatible store rather than silently misreading it. Adapted from the
// teacher's terminology/storage/versioning.go, unchanged in shape.
type Descriptor struct {
	Version   float32
	StoreType string
	path      string
}

const descriptorName = "sctdb.json"

// CreateOrOpenDescriptor opens the descriptor at path, creating one with
// currentVersion/storeType if none exists yet.
func CreateOrOpenDescriptor(path string, currentVersion float32, storeType string) (*Descriptor, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, apperr.StoreWrap(err, "creating store directory %s", path)
	}
	descriptorFilename := filepath.Join(path, descriptorName)
	if _, err := os.Stat(descriptorFilename); os.IsNotExist(err) {
		desc := &Descriptor{Version: currentVersion, StoreType: storeType, path: path}
		return desc, desc.Save()
	}
	data, err := os.ReadFile(descriptorFilename)
	if err != nil {
		return nil, apperr.StoreWrap(err, "reading store descriptor at %s", path)
	}
	var desc Descriptor
	desc.path = path
	if err := json.Unmarshal(data, &desc); err != nil {
		return nil, apperr.StoreWrap(err, "parsing store descriptor at %s", path)
	}
	if desc.StoreType != storeType {
		return nil, apperr.Store("store at %s was created as %q, not %q", path, desc.StoreType, storeType)
	}
	if desc.Version != currentVersion {
		return nil, apperr.Store("store at %s has layout version %v, this build expects %v", path, desc.Version, currentVersion)
	}
	return &desc, nil
}

// Save writes the descriptor to disk.
func (d *Descriptor) Save() error {
	descriptorFilename := filepath.Join(d.path, descriptorName)
	data, err := json.Marshal(d)
	if err != nil {
		return apperr.StoreWrap(err, "marshalling store descriptor")
	}
	if err := os.WriteFile(descriptorFilename, data, 0644); err != nil {
		return apperr.StoreWrap(err, "writing store descriptor at %s", d.path)
	}
	return nil
}
