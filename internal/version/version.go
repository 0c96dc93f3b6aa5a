package version

// Commit 在构建时通过 -ldflags "-X where-am-i/internal/version.Commit=<sha>" 注入
var Commit = "dev"
