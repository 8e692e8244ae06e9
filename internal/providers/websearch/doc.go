// Package websearch implements the quota-free web search strategy against
// an HTML results page such as DuckDuckGo's.
package websearch
