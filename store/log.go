// Copyright (c) 2025 The clst developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package store

import "github.com/btcsuite/btclog"

// log is this package's logger, disabled until the caller wires one in
// with UseLogger (typically cmd/clst-node at startup).
var log = btclog.Disabled

// UseLogger sets the package-level logger used by store.
func UseLogger(logger btclog.Logger) {
	log = logger
}
