// Package observability records planning events as JSON Lines, derives
// activity metrics from them, and fans raised alerts out to Slack and Redis.
package observability
