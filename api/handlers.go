package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/KennethAtchon/Loctelli-sub005/job"
)

func (a *API) enqueue(w http.ResponseWriter, r *http.Request) {
	t, err := pathType(r)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	var req EnqueueRequest
	if err := a.decode(r, &req); err != nil {
		a.respondError(w, r, err)
		return
	}

	jobID, err := a.eng.Enqueue(r.Context(), t, req.Payload, req.Options.toOptions()...)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusAccepted, EnqueueResponse{JobID: jobID})
}

func (a *API) getStatus(w http.ResponseWriter, r *http.Request) {
	view := a.eng.GetStatus(r.Context(), job.Type(chi.URLParam(r, "type")), chi.URLParam(r, "jobId"))

	status := http.StatusOK
	switch view.Status {
	case job.StatusNotFound:
		status = http.StatusNotFound
	case job.StatusError:
		status = http.StatusServiceUnavailable
	}
	respondJSON(w, status, view)
}

func (a *API) getStats(w http.ResponseWriter, r *http.Request) {
	t, err := pathType(r)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	stats, err := a.eng.GetStats(r.Context(), t)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func (a *API) executeTask(w http.ResponseWriter, r *http.Request) {
	var req ExecuteTaskRequest
	if err := a.decode(r, &req); err != nil {
		a.respondError(w, r, err)
		return
	}

	jobID, err := a.eng.ExecuteTask(r.Context(), req.TaskName, req.FunctionName,
		req.Args, req.Context, req.Options.toOptions()...)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusAccepted, EnqueueResponse{JobID: jobID})
}

func (a *API) executeServiceMethod(w http.ResponseWriter, r *http.Request) {
	var req ExecuteServiceMethodRequest
	if err := a.decode(r, &req); err != nil {
		a.respondError(w, r, err)
		return
	}

	jobID, err := a.eng.ExecuteServiceMethod(r.Context(), req.TaskName, req.TargetName, req.MethodName,
		req.Args, req.Context, req.Options.toOptions()...)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusAccepted, EnqueueResponse{JobID: jobID})
}

func (a *API) listCrons(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, a.scheduler.Entries())
}

func (a *API) triggerCron(w http.ResponseWriter, r *http.Request) {
	jobID, err := a.scheduler.Trigger(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusAccepted, EnqueueResponse{JobID: jobID})
}
