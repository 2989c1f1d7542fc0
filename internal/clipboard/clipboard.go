/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package clipboard is the system clipboard collaborator used by export and
// import.
package clipboard

import (
	"errors"
	"sync"

	"github.com/atotto/clipboard"
)

// Clipboard reads and writes plain text.
type Clipboard interface {
	WriteText(s string) error
	ReadText() (string, error)
}

// ErrUnsupported is returned when no clipboard utility is available
// (for example a headless Linux box without xclip, xsel or wl-clipboard).
var ErrUnsupported = errors.New("system clipboard unavailable")

// System is the OS clipboard.
type System struct{}

func (System) WriteText(s string) error {
	if clipboard.Unsupported {
		return ErrUnsupported
	}
	return clipboard.WriteAll(s)
}

func (System) ReadText() (string, error) {
	if clipboard.Unsupported {
		return "", ErrUnsupported
	}
	return clipboard.ReadAll()
}

// Memory is an in-process clipboard for tests and headless runs. Set Fail to
// make every call return that error.
type Memory struct {
	mu   sync.Mutex
	text string
	Fail error
}

func (m *Memory) WriteText(s string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	m.text = s
	return nil
}

func (m *Memory) ReadText() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return "", m.Fail
	}
	return m.text, nil
}
