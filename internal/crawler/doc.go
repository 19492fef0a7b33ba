// Package crawler drives the two-stage box-office harvest: one listing page
// per release year, then a bounded fan-out of movie detail fetches. Years run
// strictly one after another; detail failures are collected, never fatal.
package crawler
