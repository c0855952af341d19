// Package language normalizes the language tags written into clip indexes and
// dataset cards.
package language
