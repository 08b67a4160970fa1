// Copyright 2025 Cubedeck
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalSecretsManager(t *testing.T) {
	sm := NewLocalSecretsManager(nil)
	sm.SetSecret("olap-admin/jwt", map[string]string{"jwt_secret": "s3cr3t"})

	secret, err := sm.GetSecret(context.Background(), "olap-admin/jwt")
	require.NoError(t, err)
	assert.Equal(t, "s3cr3t", secret["jwt_secret"])

	_, err = sm.GetSecret(context.Background(), "unknown")
	assert.Error(t, err)
}

func TestMaskARN(t *testing.T) {
	tests := []struct {
		arn  string
		want string
	}{
		{
			arn:  "arn:aws:secretsmanager:us-east-1:123456789012:secret:olap-jwt-AbCdEf",
			want: "...t-AbCdEf",
		},
		{
			arn:  "short",
			want: "***",
		},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, maskARN(tt.arn))
	}
}
