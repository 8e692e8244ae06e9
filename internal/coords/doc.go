// Package coords recovers package coordinates from origin URLs.
//
// Forge hosts (GitHub, GitLab, Bitbucket, Codeberg, SourceHut) are read as
// owner/repo with optional tag segments. Package registries are read along
// their own path shapes. Anything else keeps the raw URL and yields no
// ecosystem, which downstream purl generation treats as unknown.
package coords
