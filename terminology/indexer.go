package terminology

import (
	"time"

	"go.uber.org/zap"

	"github.com/eldrix/snomed-terminology/snomed"
)

const indexBatchSize = 1000

// Index rebuilds the search index from every concept currently in the
// store, active or not, indexing each concept's active descriptions (spec
// §4.5). It is normally called
// via BuildIndices, after the closure index has been rebuilt.
func (svc *Svc) Index() error {
	var batch []*snomed.ExtendedDescription
	count := 0
	start := time.Now()
	err := svc.Iterate(func(concept *snomed.Concept) error {
		eds, err := svc.extendedDescriptionsForConcept(concept)
		if err != nil {
			return err
		}
		batch = append(batch, eds...)
		count += len(eds)
		if len(batch) >= indexBatchSize {
			if err := svc.Search.Index(batch); err != nil {
				return err
			}
			batch = batch[:0]
			svc.logger.Debug("indexing descriptions", zap.Int("count", count), zap.Duration("elapsed", time.Since(start)))
		}
		return nil
	})
	if err != nil {
		return err
	}
	if len(batch) > 0 {
		if err := svc.Search.Index(batch); err != nil {
			return err
		}
	}
	svc.logger.Info("indexed descriptions", zap.Int("count", count), zap.Duration("elapsed", time.Since(start)))
	return nil
}

// IndexConcept re-indexes a single concept's descriptions, for incremental
// updates outside a full BuildIndices pass.
func (svc *Svc) IndexConcept(concept *snomed.Concept) error {
	eds, err := svc.extendedDescriptionsForConcept(concept)
	if err != nil {
		return err
	}
	return svc.Search.Index(eds)
}

func (svc *Svc) extendedDescriptionsForConcept(concept *snomed.Concept) ([]*snomed.ExtendedDescription, error) {
	descs, err := svc.GetDescriptions(concept.Id)
	if err != nil {
		return nil, err
	}
	directIDs, err := svc.GetParentIDsOfKind(concept, snomed.IsA)
	if err != nil {
		return nil, err
	}
	ancestorIDs, err := svc.Ancestors(concept.Id)
	if err != nil {
		return nil, err
	}
	conceptRefsets, err := svc.RefsetsFor(concept.Id)
	if err != nil {
		return nil, err
	}
	preferred, _, err := svc.GetPreferredSynonym(concept, nil, nil)
	if err != nil {
		return nil, err
	}

	eds := make([]*snomed.ExtendedDescription, 0, len(descs))
	for _, d := range descs {
		if !d.Active {
			continue
		}
		descRefsets, err := svc.RefsetsFor(d.Id)
		if err != nil {
			return nil, err
		}
		preferredIn, acceptableIn, err := svc.languageAcceptability(d.Id, descRefsets)
		if err != nil {
			return nil, err
		}
		eds = append(eds, &snomed.ExtendedDescription{
			Concept:              concept,
			Description:          d,
			PreferredDescription: preferred,
			DirectParentIds:      directIDs,
			RecursiveParentIds:   ancestorIDs,
			ConceptRefsets:       conceptRefsets,
			DescriptionRefsets:   descRefsets,
			PreferredInRefsets:   preferredIn,
			AcceptableInRefsets:  acceptableIn,
		})
	}
	return eds, nil
}

// languageAcceptability resolves, for each language refset a description
// belongs to, whether that membership carries preferred or acceptable
// acceptability (spec §4.5's per-language acceptabilityMap).
func (svc *Svc) languageAcceptability(descriptionID int64, refsetIDs []int64) (preferredIn, acceptableIn []int64, err error) {
	for _, refsetID := range refsetIDs {
		item, found, err := svc.Store.GetFromRefset(refsetID, descriptionID)
		if err != nil {
			return nil, nil, err
		}
		if !found || !item.Active {
			continue
		}
		lang := item.GetLanguage()
		if lang == nil {
			continue
		}
		if lang.IsPreferred() {
			preferredIn = append(preferredIn, refsetID)
		} else {
			acceptableIn = append(acceptableIn, refsetID)
		}
	}
	return preferredIn, acceptableIn, nil
}
