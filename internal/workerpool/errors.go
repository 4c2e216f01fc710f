package workerpool

import "stemsmith/internal/errs"

var errShutdown = errs.New(errs.Shutdown, "worker pool is shutting down")
