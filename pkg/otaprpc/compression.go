// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package otaprpc

import "github.com/open-telemetry/otap-dataflow/collector/compression/zstd"

// registerCompression applies the receiver's zstd decoder configuration to
// the process-wide grpc-go codec registry. zstd's encoding.Compressor
// registers itself by name ("zstdarrowN") in zstd's own init, so producers
// that negotiate a zstdarrow* encoding are already decodable; this only
// tunes the decoder's memory and window limits to the configured level.
// Identity and gzip need no registration: grpc-go carries them built in.
func registerCompression(cfg zstd.DecoderConfig) error {
	return zstd.SetDecoderConfig(cfg)
}
