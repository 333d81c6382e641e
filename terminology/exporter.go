// Copyright 2018 Mark Wardle / Eldrix Ltd
//
//    Licensed under the Apache License, Version 2.0 (the "License");
//    you may not use this file except in compliance with the License.
//    You may obtain a copy of the License at
//
//        http://www.apache.org/licenses/LICENSE-2.0
//
//    Unless required by applicable law or agreed to in writing, software
//    distributed under the License is distributed on an "AS IS" BASIS,
//    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//    See the License for the specific language governing permissions and
//    limitations under the License.
//

package terminology

import (
	"io"
	"time"

	gogoio "github.com/gogo/protobuf/io"
	"go.uber.org/zap"

	"github.com/eldrix/snomed-terminology/snomed"
)

// Export streams every active description, enriched the same way Index
// enriches them, to w as length-delimited protobuf messages (spec §4.8).
func (svc *Svc) Export(w io.Writer) error {
	dw := gogoio.NewDelimitedWriter(w)
	defer dw.Close()

	count := 0
	start := time.Now()
	err := svc.Iterate(func(concept *snomed.Concept) error {
		eds, err := svc.extendedDescriptionsForConcept(concept)
		if err != nil {
			return err
		}
		for _, ed := range eds {
			if err := dw.WriteMsg(ed); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	svc.logger.Info("exported descriptions", zap.Int("count", count), zap.Duration("elapsed", time.Since(start)))
	return err
}
