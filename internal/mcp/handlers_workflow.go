package mcp

import (
	"context"
	"fmt"

	"flowcast/internal/workflow"
)

func (s *Server) workflowResponse(warnings []string) ResponseEnvelope {
	st := s.store.Snapshot()
	return WrapResponse(st.Definition, st, warnings, nil, nil)
}

func (s *Server) handleGetWorkflow(_ context.Context, _ NoInput) (any, error) {
	def := s.store.Workflow()
	return s.workflowResponse(def.Warnings()), nil
}

func (s *Server) handleSetWorkflow(_ context.Context, in SetWorkflowInput) (any, error) {
	if in.InProgress == nil && in.Hidden == nil {
		warnings, err := s.store.SetWorkflowStates(in.States)
		if err != nil {
			return nil, err
		}
		return s.workflowResponse(warnings), nil
	}

	def, err := workflow.New(in.States)
	if err != nil {
		return nil, err
	}
	if in.InProgress != nil {
		for _, st := range in.States {
			def.InProgress[st] = false
		}
		for _, st := range in.InProgress {
			if !def.Has(st) {
				return nil, fmt.Errorf("in_progress names unknown state %q", st)
			}
			def.InProgress[st] = true
		}
	}
	for _, st := range in.Hidden {
		if !def.Has(st) {
			return nil, fmt.Errorf("hidden names unknown state %q", st)
		}
		def.Visibility[st] = false
	}

	warnings, err := s.store.SetWorkflowDefinition(def)
	if err != nil {
		return nil, err
	}
	return s.workflowResponse(warnings), nil
}

func (s *Server) handleToggleInProgress(_ context.Context, in StateInput) (any, error) {
	warnings, err := s.store.ToggleInProgress(in.State)
	if err != nil {
		return nil, err
	}
	return s.workflowResponse(warnings), nil
}

func (s *Server) handleToggleVisibility(_ context.Context, in StateInput) (any, error) {
	if err := s.store.ToggleVisibility(in.State); err != nil {
		return nil, err
	}
	return s.workflowResponse(nil), nil
}

func (s *Server) handleAddState(_ context.Context, in AddStateInput) (any, error) {
	warnings, err := s.store.AddState(in.Name)
	if err != nil {
		return nil, err
	}
	return s.workflowResponse(warnings), nil
}

func (s *Server) handleDeleteState(_ context.Context, in StateInput) (any, error) {
	warnings, err := s.store.DeleteState(in.State)
	if err != nil {
		return nil, err
	}
	return s.workflowResponse(warnings), nil
}

func (s *Server) handleMergeStates(_ context.Context, in MergeStatesInput) (any, error) {
	warnings, err := s.store.MergeStates(in.States, in.NewName)
	if err != nil {
		return nil, err
	}
	return s.workflowResponse(warnings), nil
}
