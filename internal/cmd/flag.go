package cmd

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/caarlos0/duration"
)

var (
	flagNameRe   = regexp.MustCompile(`"(-\w, )?(--[\w-]+)" flag`)
	flagMissing  = regexp.MustCompile(`^unknown (shorthand )?flag: (.+)$`)
	flagNeedsArg = regexp.MustCompile(`^flag needs an argument: (.+)$`)
	shortInArg   = regexp.MustCompile(`^'(\w)' in (-\w)$`)
)

// flagParseError is a cobra flag error that knows which flag it is about.
type flagParseError struct {
	err    error
	reason string
	flag   string
}

func newFlagParseError(err error) flagParseError {
	msg := err.Error()
	switch {
	case flagMissing.MatchString(msg):
		flag := flagMissing.FindStringSubmatch(msg)[2]
		if m := shortInArg.FindStringSubmatch(flag); m != nil {
			flag = m[2]
		}
		return flagParseError{err: err, reason: "Flag %s is missing.", flag: flag}
	case flagNeedsArg.MatchString(msg):
		flag := flagNeedsArg.FindStringSubmatch(msg)[1]
		if m := shortInArg.FindStringSubmatch(flag); m != nil {
			flag = m[2]
		}
		return flagParseError{err: err, reason: "Flag %s needs an argument.", flag: flag}
	case strings.HasPrefix(msg, "invalid argument"):
		flag := ""
		if m := flagNameRe.FindStringSubmatch(msg); m != nil {
			flag = m[1] + m[2]
		}
		return flagParseError{err: err, reason: "Flag %s has an invalid argument.", flag: flag}
	}
	return flagParseError{err: err, reason: "Invalid flag: %s", flag: msg}
}

func (f flagParseError) Error() string {
	return f.err.Error()
}

func (f flagParseError) ReasonFormat() string {
	return f.reason
}

func (f flagParseError) Flag() string {
	return f.flag
}

// durationFlag is a pflag.Value that accepts days and weeks on top of what
// time.ParseDuration does.
type durationFlag time.Duration

func newDurationFlag(val time.Duration, p *time.Duration) *durationFlag {
	*p = val
	return (*durationFlag)(p)
}

func (d *durationFlag) Set(s string) error {
	v, err := duration.Parse(s)
	if err != nil {
		return fmt.Errorf("parse duration: %w", err)
	}
	*d = durationFlag(v)
	return nil
}

func (d *durationFlag) String() string {
	return time.Duration(*d).String()
}

func (*durationFlag) Type() string {
	return "duration"
}
