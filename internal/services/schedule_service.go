package services

import (
	"regexp"
	"time"

	"hiv-clinic-server/internal/models"
)

// defaultSlots maps a medication frequency to its standard dosing times.
var defaultSlots = map[models.MedicationFrequency][]string{
	models.OnceDaily:       {"08:00"},
	models.TwiceDaily:      {"08:00", "20:00"},
	models.ThreeTimesDaily: {"08:00", "14:00", "20:00"},
	models.FourTimesDaily:  {"06:00", "12:00", "18:00", "00:00"},
	models.EveryOtherDay:   {"08:00"},
	models.Weekly:          {"08:00"},
	models.Monthly:         {"08:00"},
}

var timeOfDayPattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// DefaultSchedules builds the deterministic schedule set for a frequency.
// Every default slot applies daily (empty daysOfWeek).
func DefaultSchedules(frequency models.MedicationFrequency, dosageAmount string) []models.MedicationSchedule {
	slots, ok := defaultSlots[frequency]
	if !ok {
		slots = defaultSlots[models.OnceDaily]
	}
	schedules := make([]models.MedicationSchedule, 0, len(slots))
	for i, slot := range slots {
		schedules = append(schedules, models.MedicationSchedule{
			Position:     i,
			TimeOfDay:    slot,
			DosageAmount: dosageAmount,
		})
	}
	return schedules
}

// MedicationScheduleService manages dosing-time entries for one medication.
type MedicationScheduleService struct {
	repo ScheduleRepository
	now  func() time.Time
}

// NewMedicationScheduleService creates a new MedicationScheduleService.
func NewMedicationScheduleService(repo ScheduleRepository) *MedicationScheduleService {
	return &MedicationScheduleService{repo: repo, now: time.Now}
}

// ScheduleInput is the payload for creating or updating a schedule entry.
type ScheduleInput struct {
	TimeOfDay    string
	DosageAmount string
	DaysOfWeek   models.WeekdaySet
	Notes        string
}

func validateSchedule(in ScheduleInput, verr *ValidationError) {
	if in.TimeOfDay == "" {
		verr.Add("timeOfDay is required")
	} else if !timeOfDayPattern.MatchString(in.TimeOfDay) {
		verr.Add("timeOfDay must be HH:MM")
	}
	if in.DosageAmount == "" {
		verr.Add("dosageAmount is required")
	}
	if err := in.DaysOfWeek.Validate(); err != nil {
		verr.Add(err.Error())
	}
}

// ListForMedication returns the schedule rows of one medication.
func (s *MedicationScheduleService) ListForMedication(medicationID string) ([]models.MedicationSchedule, error) {
	if _, err := s.repo.MedicationByID(medicationID); err != nil {
		return nil, err
	}
	return s.repo.ForMedication(medicationID)
}

// GenerateDefaults replaces nothing and deletes nothing: it appends the
// frequency-derived default slots to the medication.
func (s *MedicationScheduleService) GenerateDefaults(medicationID string) ([]models.MedicationSchedule, error) {
	med, err := s.repo.MedicationByID(medicationID)
	if err != nil {
		return nil, err
	}
	schedules := DefaultSchedules(med.Frequency, med.Dosage)
	for i := range schedules {
		schedules[i].MedicationPrescriptionID = med.ID
	}
	if err := s.repo.CreateBatch(schedules); err != nil {
		return nil, err
	}
	return s.repo.ForMedication(medicationID)
}

// CreateCustom validates and persists caller-defined schedule entries.
func (s *MedicationScheduleService) CreateCustom(medicationID string, inputs []ScheduleInput) ([]models.MedicationSchedule, error) {
	med, err := s.repo.MedicationByID(medicationID)
	if err != nil {
		return nil, err
	}

	verr := &ValidationError{}
	if len(inputs) == 0 {
		verr.Add("at least one schedule required")
	}
	for _, in := range inputs {
		validateSchedule(in, verr)
	}
	if verr.HasViolations() {
		return nil, verr
	}

	rows := make([]models.MedicationSchedule, 0, len(inputs))
	for _, in := range inputs {
		rows = append(rows, models.MedicationSchedule{
			MedicationPrescriptionID: med.ID,
			TimeOfDay:                in.TimeOfDay,
			DosageAmount:             in.DosageAmount,
			DaysOfWeek:               in.DaysOfWeek,
			Notes:                    in.Notes,
		})
	}
	if err := s.repo.CreateBatch(rows); err != nil {
		return nil, err
	}
	return s.repo.ForMedication(medicationID)
}

// Update applies a full patch to one schedule entry.
func (s *MedicationScheduleService) Update(id string, input ScheduleInput) (*models.MedicationSchedule, error) {
	schedule, err := s.repo.ByID(id)
	if err != nil {
		return nil, err
	}

	verr := &ValidationError{}
	validateSchedule(input, verr)
	if verr.HasViolations() {
		return nil, verr
	}

	schedule.TimeOfDay = input.TimeOfDay
	schedule.DosageAmount = input.DosageAmount
	schedule.DaysOfWeek = input.DaysOfWeek
	schedule.Notes = input.Notes
	if err := s.repo.Save(schedule); err != nil {
		return nil, err
	}
	return schedule, nil
}

// Delete removes one schedule entry.
func (s *MedicationScheduleService) Delete(id string) error {
	if _, err := s.repo.ByID(id); err != nil {
		return err
	}
	return s.repo.Delete(id)
}

// MarkTaken records that the patient took the dose for this entry.
func (s *MedicationScheduleService) MarkTaken(id string) (*models.MedicationSchedule, error) {
	schedule, err := s.repo.ByID(id)
	if err != nil {
		return nil, err
	}
	takenAt := s.now()
	schedule.LastTakenAt = &takenAt
	if err := s.repo.Save(schedule); err != nil {
		return nil, err
	}
	return schedule, nil
}
