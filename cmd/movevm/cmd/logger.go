// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cmd

import (
	"io"
	"os"
	"path/filepath"

	"github.com/ava-labs/avalanchego/utils/logging"
	"gopkg.in/natefinch/lumberjack.v2"
)

// newLogger writes JSON records to [name].log under the configured
// directory, rotating by size and age. Colored text goes to stderr only when
// displaying is enabled.
func newLogger(config logging.Config, name string) logging.Logger {
	var display io.WriteCloser = nopCloser{os.Stderr}
	if config.DisableWriterDisplaying {
		display = nopCloser{io.Discard}
	}
	displayCore := logging.NewWrappedCore(config.DisplayLevel, display, logging.Colors.ConsoleEncoder())
	displayCore.WriterDisabled = config.DisableWriterDisplaying

	file := &lumberjack.Logger{
		Filename:   filepath.Join(config.Directory, name+".log"),
		MaxSize:    config.MaxSize,  // megabytes
		MaxAge:     config.MaxAge,   // days
		MaxBackups: config.MaxFiles, // files
		Compress:   config.Compress,
	}
	fileCore := logging.NewWrappedCore(config.LogLevel, file, config.LogFormat.FileEncoder())

	return logging.NewLogger(config.LogFormat.WrapPrefix(name), displayCore, fileCore)
}

// nopCloser keeps Stop from closing stderr.
type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error {
	return nil
}
