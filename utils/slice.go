package utils

import "strings"

// UniqueStrings removes empty and duplicate values while keeping first-seen order.
func UniqueStrings(slice []string) []string {
	keys := make(map[string]bool, len(slice))
	list := []string{}
	for _, entry := range slice {
		if entry == "" || keys[entry] {
			continue
		}
		keys[entry] = true
		list = append(list, entry)
	}
	return list
}

// CleanTags trims each tag, strips markup and drops empty ones. Order is kept.
func CleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = SanitizeText(strings.TrimSpace(t)); t != "" {
			out = append(out, t)
		}
	}
	return out
}
