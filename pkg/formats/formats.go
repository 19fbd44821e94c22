// Package formats provides readers and writers for the gridwarp file formats.
package formats
