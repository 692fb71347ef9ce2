package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	mqcontracts "ganttservice/contracts/mq"
	"ganttservice/internal/model"
	"ganttservice/internal/repository"
	"ganttservice/pkg/config"
	apperrors "ganttservice/pkg/errors"
	"ganttservice/pkg/logger"
	"ganttservice/pkg/trace"
)

const maxSearchLimit = 100

// LinkList is the link panel of one task.
type LinkList struct {
	Links []model.LinkView `json:"links"`
	Types []model.LinkType `json:"types"`
}

// SearchQuery is an autocomplete request. Seq is echoed back so clients can
// drop responses older than the newest one they applied.
type SearchQuery struct {
	Q     string
	Cross bool
	Limit int
	Seq   int64
}

// SearchResult answers a SearchQuery.
type SearchResult struct {
	Items []model.TaskSearchItem `json:"items"`
	Seq   int64                  `json:"seq"`
}

// SeedRequest sets or clears the arrow direction of a "relates to" link.
type SeedRequest struct {
	TaskLinkID int
	SeedTaskID int
	Active     bool
}

type LinkService struct {
	tasks     TaskStore
	links     LinkStore
	seeds     SeedStore
	projects  ProjectStore
	publisher EventPublisher
	cfg       config.GanttConfig
	logger    *zap.Logger
}

func NewLinkService(
	tasks TaskStore,
	links LinkStore,
	seeds SeedStore,
	projects ProjectStore,
	publisher EventPublisher,
	cfg config.GanttConfig,
	logger *zap.Logger,
) *LinkService {
	return &LinkService{
		tasks:     tasks,
		links:     links,
		seeds:     seeds,
		projects:  projects,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
	}
}

// List returns the links of a task as seen from that task, plus the link
// type catalog.
func (s *LinkService) List(ctx context.Context, projectID, taskID int) (*LinkList, error) {
	if taskID <= 0 {
		return nil, apperrors.New(apperrors.CodeInvalidInput, "missing task_id")
	}
	if _, err := taskInProject(ctx, s.tasks, projectID, taskID); err != nil {
		return nil, err
	}

	links, err := s.links.ListByTasks(ctx, []int{taskID})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to list links")
	}
	types, err := s.links.LinkTypes(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to list link types")
	}
	seeds, err := s.seeds.GetBulk(ctx, projectID, linkIDs(links))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to read seeds")
	}

	others := make([]int, 0, len(links))
	for _, l := range links {
		others = append(others, l.Other(taskID))
	}
	otherTasks, err := s.tasks.GetByIDs(ctx, others)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to load linked tasks")
	}
	byID := make(map[int]model.Task, len(otherTasks))
	for _, t := range otherTasks {
		byID[t.ID] = t
	}
	typeByID := make(map[int]model.LinkType, len(types))
	for _, lt := range types {
		typeByID[lt.ID] = lt
	}

	views := make([]model.LinkView, 0, len(links))
	for _, l := range links {
		typeID := l.LinkTypeID
		if l.TaskID != taskID {
			// read from the opposite side
			if opp := typeByID[typeID].OppositeID; opp > 0 {
				typeID = opp
			}
		}
		other := byID[l.Other(taskID)]

		view := model.LinkView{
			TaskLinkID:      l.ID,
			LinkID:          typeID,
			LinkLabel:       typeByID[typeID].Label,
			OppositeTaskID:  l.Other(taskID),
			OppositeTitle:   other.Title,
			OppositeProject: other.ProjectID,
		}
		if seed, ok := seeds[l.ID]; ok {
			seedTask := seed.SeedTaskID
			view.SeedTaskID = &seedTask
			view.SeedActive = seedTask == taskID
		}
		views = append(views, view)
	}

	return &LinkList{Links: views, Types: types}, nil
}

// Create links two tasks of the project.
func (s *LinkService) Create(ctx context.Context, projectID, userID, taskID, oppositeTaskID, linkTypeID int) (int, error) {
	log := logger.WithTrace(ctx, s.logger)

	if taskID <= 0 || oppositeTaskID <= 0 || linkTypeID <= 0 {
		return 0, apperrors.New(apperrors.CodeInvalidInput, "task_id, opposite_task_id and link_id must be positive")
	}
	if taskID == oppositeTaskID {
		return 0, apperrors.New(apperrors.CodeSelfLink, "a task cannot be linked to itself")
	}

	pair, err := s.tasks.GetByIDs(ctx, []int{taskID, oppositeTaskID})
	if err != nil {
		return 0, apperrors.Wrap(apperrors.CodeInternal, err, "failed to load tasks")
	}
	if len(pair) != 2 {
		return 0, apperrors.New(apperrors.CodeTaskNotFound, "task %d or %d not found", taskID, oppositeTaskID)
	}
	for _, t := range pair {
		if t.ProjectID != projectID {
			return 0, apperrors.New(apperrors.CodeProjectMismatch, "task %d is not in project %d", t.ID, projectID)
		}
	}

	types, err := s.links.LinkTypes(ctx)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.CodeInternal, err, "failed to list link types")
	}
	if !hasLinkType(types, linkTypeID) {
		return 0, apperrors.New(apperrors.CodeInvalidInput, "unknown link type %d", linkTypeID)
	}

	id, err := s.links.Create(ctx, taskID, oppositeTaskID, linkTypeID)
	if err != nil {
		log.Error("Failed to create link", zap.Error(err))
		return 0, apperrors.Wrap(apperrors.CodeInternal, err, "failed to create link")
	}

	s.publishLinkChanged(ctx, projectID, id, userID, "created")
	return id, nil
}

// Remove deletes a link of the project and its seed.
func (s *LinkService) Remove(ctx context.Context, projectID, userID, taskLinkID int) error {
	log := logger.WithTrace(ctx, s.logger)

	if taskLinkID <= 0 {
		return apperrors.New(apperrors.CodeInvalidInput, "invalid task_link_id")
	}
	link, err := s.loadLink(ctx, taskLinkID)
	if err != nil {
		return err
	}
	if _, err := taskInProject(ctx, s.tasks, projectID, link.TaskID); err != nil {
		return err
	}

	if err := s.links.Delete(ctx, taskLinkID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.New(apperrors.CodeLinkNotFound, "link %d not found", taskLinkID)
		}
		return apperrors.Wrap(apperrors.CodeInternal, err, "failed to remove link")
	}

	if err := s.seeds.Clear(ctx, projectID, taskLinkID); err != nil {
		// a stale seed never matches a new link id
		log.Warn("Failed to clear seed of removed link", zap.Int("task_link_id", taskLinkID), zap.Error(err))
	}

	s.publishLinkChanged(ctx, projectID, taskLinkID, userID, "removed")
	return nil
}

// Search looks tasks up by id or title, in the current project or, with
// Cross, in every active project of the user.
func (s *LinkService) Search(ctx context.Context, projectID, userID int, q SearchQuery) (*SearchResult, error) {
	res := &SearchResult{Items: []model.TaskSearchItem{}, Seq: q.Seq}
	term := strings.TrimSpace(q.Q)
	if term == "" {
		return res, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = s.cfg.SearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	projectIDs := []int{projectID}
	if q.Cross {
		ids, err := s.projects.ActiveProjectIDs(ctx, userID)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to list projects")
		}
		projectIDs = ids
	}

	items, err := s.tasks.Search(ctx, projectIDs, term, limit)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to search tasks")
	}
	for i := range items {
		items[i].URL = taskURL(s.cfg.TaskURLBase, items[i].ProjectID, items[i].ID)
	}
	res.Items = items
	return res, nil
}

// Seed sets (Active) or clears the direction of a "relates to" link.
func (s *LinkService) Seed(ctx context.Context, projectID, userID int, req SeedRequest) error {
	if req.TaskLinkID <= 0 {
		return apperrors.New(apperrors.CodeInvalidInput, "invalid task_link_id")
	}
	link, err := s.loadLink(ctx, req.TaskLinkID)
	if err != nil {
		return err
	}

	types, err := s.links.LinkTypes(ctx)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, err, "failed to list link types")
	}
	if !s.isRelatesTo(link.LinkTypeID, types) {
		return apperrors.New(apperrors.CodeTypeNotAllowed, "only \"relates to\" links can be seeded")
	}

	pair, err := s.tasks.GetByIDs(ctx, []int{link.TaskID, link.OppositeTaskID})
	if err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, err, "failed to load tasks")
	}
	if len(pair) != 2 {
		return apperrors.New(apperrors.CodeTaskNotFound, "linked task not found")
	}
	for _, t := range pair {
		if t.ID == link.TaskID && t.ProjectID != projectID {
			return apperrors.New(apperrors.CodeProjectMismatch, "link %d is not in project %d", link.ID, projectID)
		}
	}

	action := "unseeded"
	if req.Active {
		seed := model.Seed{TaskID: link.TaskID, OppositeTaskID: link.OppositeTaskID, SeedTaskID: req.SeedTaskID}
		if !seed.Valid() {
			return apperrors.New(apperrors.CodeInvalidInput, "seed_task_id must be one of the linked tasks")
		}
		if err := s.seeds.Set(ctx, projectID, link.ID, seed); err != nil {
			return apperrors.Wrap(apperrors.CodeInternal, err, "failed to store seed")
		}
		action = "seeded"
	} else if err := s.seeds.Clear(ctx, projectID, link.ID); err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, err, "failed to clear seed")
	}

	s.publishLinkChanged(ctx, projectID, link.ID, userID, action)
	return nil
}

func (s *LinkService) loadLink(ctx context.Context, taskLinkID int) (*model.TaskLink, error) {
	link, err := s.links.GetByID(ctx, taskLinkID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.New(apperrors.CodeLinkNotFound, "link %d not found", taskLinkID)
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to load link %d", taskLinkID)
	}
	return link, nil
}

// isRelatesTo matches the configured id or the catalog label.
func (s *LinkService) isRelatesTo(linkTypeID int, types []model.LinkType) bool {
	if s.cfg.RelatesLinkID > 0 && linkTypeID == s.cfg.RelatesLinkID {
		return true
	}
	for _, lt := range types {
		if lt.ID != linkTypeID {
			continue
		}
		label := strings.ToLower(strings.TrimSpace(lt.Label))
		return label == "relates to" || label == "relates"
	}
	return false
}

func (s *LinkService) publishLinkChanged(ctx context.Context, projectID, taskLinkID, userID int, action string) {
	if s.publisher == nil {
		return
	}
	payload := mqcontracts.TaskLinkChangedPayload{
		ProjectID:  projectID,
		TaskLinkID: taskLinkID,
		Action:     action,
		UserID:     userID,
		TraceID:    trace.FromContext(ctx),
	}
	if err := s.publisher.Publish(ctx, mqcontracts.RoutingKeyTaskLinkChanged, payload); err != nil {
		logger.WithTrace(ctx, s.logger).Warn("Failed to publish link event",
			zap.String("action", action),
			zap.Int("task_link_id", taskLinkID),
			zap.Error(err),
		)
	}
}

func hasLinkType(types []model.LinkType, id int) bool {
	for _, lt := range types {
		if lt.ID == id {
			return true
		}
	}
	return false
}
