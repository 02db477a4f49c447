// Package docs embeds the OpenAPI document of the management API.
package docs

import _ "embed"

//go:embed swagger.yml
var SwaggerYAML []byte
