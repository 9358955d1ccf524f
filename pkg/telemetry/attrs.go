// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import "go.opentelemetry.io/otel/attribute"

func attrNodeID(id string) attribute.KeyValue {
	return attribute.String("node_id", id)
}

func attrMetricName(name string) attribute.KeyValue {
	return attribute.String("metric", name)
}
