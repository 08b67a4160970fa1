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

// Package main is the entry point for the Cubedeck OLAP datasource admin
// service.
//
// The service administers olap4j connection descriptors and their stored
// schema documents over HTTP.
//
// Usage:
//
//	./olapadmin [-config config.yaml]
//
// Environment Variables (when no config file is given):
//
//	PORT                      - HTTP server port (default: 8080)
//	OLAP_ADMIN_JWT_SECRET     - JWT signing secret
//	OLAP_ADMIN_JWT_SECRET_ARN - AWS Secrets Manager ARN holding the secret
//	OLAP_REGISTRY_BACKEND     - memory, postgres, or mysql (default: memory)
//	OLAP_REGISTRY_DSN         - database connection string
//	OLAP_STORE_BACKEND        - local, s3, azureblob, or gcs (default: local)
//	OLAP_STORE_ROOT           - local directory or cloud key prefix
//	OLAP_STORE_BUCKET         - cloud bucket or container name
//	REDIS_URL                 - enables Redis-backed rate limiting
package main

import (
	"flag"

	"cubedeck/platform/olapadmin"
)

func main() {
	configFile := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	olapadmin.Run(*configFile)
}
