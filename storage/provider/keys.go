// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package provider

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/gofrs/uuid"
)

var (
	filenameSanitizer   = regexp.MustCompile(`[^a-zA-Z0-9-_]`)
	folderNameSanitizer = regexp.MustCompile(`[^a-zA-Z0-9-_\s]`)
)

// GenerateStorageKey builds the backend object key for a new upload:
// ownerID/[folderPath/]sanitizedBase_uuid.ext. The random UUID makes
// keys collision-free regardless of the client-supplied filename.
func GenerateStorageKey(ownerID string, folderPath string, filename string) string {
	ext := path.Ext(filename)
	base := strings.TrimSuffix(path.Base(filename), ext)
	sanitized := filenameSanitizer.ReplaceAllString(base, "_")
	newFilename := fmt.Sprintf("%s_%s%s", sanitized, uuid.Must(uuid.NewV4()).String(), ext)

	if folderPath != "" {
		return fmt.Sprintf("%s/%s/%s", ownerID, folderPath, newFilename)
	}
	return fmt.Sprintf("%s/%s", ownerID, newFilename)
}

// SanitizeFolderName strips every character outside [a-zA-Z0-9-_ ] and
// trims surrounding whitespace.
func SanitizeFolderName(name string) string {
	return strings.TrimSpace(folderNameSanitizer.ReplaceAllString(name, ""))
}

// BuildFolderPath joins a parent materialized path with a sanitized
// folder name. An empty parent path yields a root-level path.
func BuildFolderPath(parentPath string, folderName string) string {
	sanitized := SanitizeFolderName(folderName)
	if parentPath != "" {
		return parentPath + "/" + sanitized
	}
	return sanitized
}
